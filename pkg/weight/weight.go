// Package weight computes a tipset's accumulated chain weight, an
// opaque scalar the block producer threads through into the header
// unmodified.
package weight

import (
	"github.com/didem-chain/blockcore/pkg/chain"
)

// Calculator computes a tipset's chain weight.
type Calculator interface {
	Weight(ts *chain.Tipset) chain.BigInt
}

var _ Calculator = (*ParentPlusBlocksCalculator)(nil)

// ParentPlusBlocksCalculator adds one unit of weight per block in the
// tipset to the parent's recorded weight — deterministic, monotonic,
// and independent of any EC tie-break formula.
type ParentPlusBlocksCalculator struct{}

func NewCalculator() *ParentPlusBlocksCalculator {
	return &ParentPlusBlocksCalculator{}
}

func (ParentPlusBlocksCalculator) Weight(ts *chain.Tipset) chain.BigInt {
	blocks := chain.NewBigInt(int64(len(ts.Key())))
	return ts.ParentWeight.Add(blocks)
}
