// Package mempool holds pending signed messages and serves snapshots of
// the highest-scored ones to the block producer. Scoring is by gas
// premium, highest first; TopScored never drains the pool, each call is
// an independent snapshot.
package mempool

import (
	"container/heap"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/didem-chain/blockcore/pkg/chain"
)

const (
	// seenCapacity sizes the duplicate filter; at the default false
	// positive rate the filter stays accurate well past one block's
	// worth of traffic.
	seenCapacity  = 100000
	falsePositive = 0.01
)

// ErrAlreadyKnown is returned by Add for a message the pool has already
// accepted.
var ErrAlreadyKnown = errors.New("message already in pool")

// View is the mempool interface the block producer consumes.
type View interface {
	TopScored(n int) []chain.SignedMessage
}

var _ View = (*Pool)(nil)

// Pool is the reference View: an in-memory set of pending signed
// messages, scored by gas premium. A bloom filter over message CIDs
// screens out duplicates before the exact check walks the heap.
type Pool struct {
	mu   sync.Mutex
	msgs entryHeap
	seen *bloom.BloomFilter
}

func New() *Pool {
	return &Pool{
		seen: bloom.NewWithEstimates(seenCapacity, falsePositive),
	}
}

// Add enqueues a signed message for future TopScored snapshots,
// rejecting duplicates.
func (p *Pool) Add(msg chain.SignedMessage) error {
	c, err := msg.Cid()
	if err != nil {
		return errors.Wrap(err, "hashing message")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// The filter can false-positive, so a hit is confirmed against the
	// heap before the message is dropped.
	if p.seen.Test(c.Bytes()) && p.contains(c) {
		return ErrAlreadyKnown
	}
	p.seen.Add(c.Bytes())

	heap.Push(&p.msgs, entry{msg: msg, cid: c})
	return nil
}

func (p *Pool) contains(c cid.Cid) bool {
	for _, e := range p.msgs {
		if e.cid.Equals(c) {
			return true
		}
	}
	return false
}

// TopScored returns up to n pending messages, highest gas premium
// first, without removing them from the pool.
func (p *Pool) TopScored(n int) []chain.SignedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make(entryHeap, len(p.msgs))
	copy(snapshot, p.msgs)

	if n > len(snapshot) {
		n = len(snapshot)
	}
	out := make([]chain.SignedMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, heap.Pop(&snapshot).(entry).msg)
	}
	return out
}

type entry struct {
	msg chain.SignedMessage
	cid cid.Cid
}

// entryHeap is a container/heap max-heap keyed by GasPremium.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	return h[i].msg.Message.GasPremium.Cmp(h[j].msg.Message.GasPremium) > 0
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
