// Package clock implements the two clocks the block producer reads
// from: a UTC wall clock and a chain-epoch clock that maps wall time
// onto discrete epochs. The wall clock sits behind an interface so
// tests can pin the producer to a fixed instant.
package clock

import (
	"time"

	"github.com/didem-chain/blockcore/pkg/chain"
)

// Clock reads the current wall-clock instant.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock: time.Now() in UTC.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

var _ Clock = UTCClock{}

// EpochClock converts between wall-clock time and chain.Epoch given a
// genesis instant and a fixed block delay.
type EpochClock struct {
	genesis    time.Time
	blockDelay time.Duration
}

// NewEpochClock builds an EpochClock anchored at genesis, with one
// epoch elapsing every blockDelay.
func NewEpochClock(genesis time.Time, blockDelay time.Duration) *EpochClock {
	return &EpochClock{genesis: genesis, blockDelay: blockDelay}
}

// EpochAt returns the epoch containing instant t. Instants before
// genesis map to epoch 0.
func (c *EpochClock) EpochAt(t time.Time) chain.Epoch {
	if t.Before(c.genesis) {
		return 0
	}
	elapsed := t.Sub(c.genesis)
	return chain.Epoch(elapsed / c.blockDelay)
}

// TimeAtEpoch returns the instant an epoch begins at.
func (c *EpochClock) TimeAtEpoch(e chain.Epoch) time.Time {
	return c.genesis.Add(time.Duration(e) * c.blockDelay)
}
