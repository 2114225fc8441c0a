// Package blockprod assembles new block proposals: it binds the CAS,
// AMT, crypto provider, clocks, weight calculator, mempool view and VM
// interpreter into a single Generate call that turns a parent tipset
// and a mempool snapshot into an unsigned block.
package blockprod

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/didem-chain/blockcore/pkg/amt"
	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/clock"
	"github.com/didem-chain/blockcore/pkg/cryptography"
	"github.com/didem-chain/blockcore/pkg/mempool"
	"github.com/didem-chain/blockcore/pkg/store"
	"github.com/didem-chain/blockcore/pkg/vm"
	"github.com/didem-chain/blockcore/pkg/weight"
)

// BlockMaxMessages caps the number of messages drawn from the mempool
// per block.
const BlockMaxMessages = 1000

// Errors surfaced by Generate when the parent tipset cannot be loaded.
// VM and crypto errors propagate unchanged.
var (
	ErrParentTipsetNotFound       = errors.New("parent tipset not found")
	ErrParentTipsetInvalidContent = errors.New("parent tipset content invalid")
)

// Producer assembles block proposals from its collaborators.
type Producer struct {
	cas         store.Store
	interpreter vm.Interpreter
	weight      weight.Calculator
	mempool     mempool.View
	crypto      cryptography.Provider
	clock       clock.Clock
	epoch       *clock.EpochClock
	logger      *logrus.Entry
}

// Option configures a Producer.
type Option func(*Producer) error

func WithCAS(s store.Store) Option {
	return func(p *Producer) error { p.cas = s; return nil }
}

func WithInterpreter(i vm.Interpreter) Option {
	return func(p *Producer) error { p.interpreter = i; return nil }
}

func WithWeightCalculator(w weight.Calculator) Option {
	return func(p *Producer) error { p.weight = w; return nil }
}

func WithMempool(m mempool.View) Option {
	return func(p *Producer) error { p.mempool = m; return nil }
}

func WithCryptoProvider(c cryptography.Provider) Option {
	return func(p *Producer) error { p.crypto = c; return nil }
}

func WithClock(c clock.Clock, e *clock.EpochClock) Option {
	return func(p *Producer) error { p.clock = c; p.epoch = e; return nil }
}

func WithLogger(l *logrus.Entry) Option {
	return func(p *Producer) error { p.logger = l; return nil }
}

// New builds a Producer from the given options, erroring if any
// required collaborator is missing.
func New(opts ...Option) (*Producer, error) {
	p := &Producer{logger: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.cas == nil || p.interpreter == nil || p.weight == nil || p.mempool == nil || p.crypto == nil || p.clock == nil || p.epoch == nil {
		return nil, errors.New("blockprod: missing required collaborator")
	}
	return p, nil
}

// Generate assembles a new unsigned block proposal. The header's
// BlockSignature is left empty; the miner actor's signing step fills it
// in.
func (p *Producer) Generate(ctx context.Context, miner chain.Address, parentTipsetCid cid.Cid, electionProof, ticket []byte, indices interface{}) (*chain.Block, error) {
	parentTipset, err := p.getTipset(parentTipsetCid)
	if err != nil {
		return nil, err
	}

	stateRoot, receiptsRoot, err := p.interpreter.Interpret(p.cas, parentTipset, indices)
	if err != nil {
		return nil, errors.Wrap(err, "interpreting parent tipset")
	}

	parentWeight := p.weight.Weight(parentTipset)

	messages := p.mempool.TopScored(BlockMaxMessages)

	// Cancellation is best-effort and checked only at this coarse
	// boundary, between VM interpretation and AMT flush. A cancelled
	// proposal must not publish any header.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blsMessages, secpMessages, blsSigs := partitionMessages(messages)

	blsAggregate, err := p.crypto.Aggregate(blsSigs)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating bls signatures")
	}

	msgMetaCid, err := p.buildMsgMeta(messages)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	height := p.epoch.EpochAt(now)

	p.logger.WithFields(logrus.Fields{
		"height":   height,
		"messages": len(messages),
		"miner":    miner.String(),
	}).Debug("assembled block proposal")

	header := &chain.BlockHeader{
		Miner:                 chain.WrapAddr(miner),
		Ticket:                ticket,
		ElectionProof:         electionProof,
		Parents:               parentTipset.Cids,
		ParentWeight:          parentWeight,
		Height:                height,
		ParentStateRoot:       chain.WrapCID(stateRoot),
		ParentMessageReceipts: chain.WrapCID(receiptsRoot),
		Messages:              chain.WrapCID(msgMetaCid),
		BLSAggregate:          blsAggregate,
		Timestamp:             uint64(now.Unix()),
		ForkSignaling:         0,
	}

	return &chain.Block{Header: header, BLSMessages: blsMessages, SECPMessages: secpMessages}, nil
}

func (p *Producer) getTipset(c cid.Cid) (*chain.Tipset, error) {
	raw, err := p.cas.Get(c)
	if err != nil {
		return nil, ErrParentTipsetNotFound
	}
	var ts chain.Tipset
	if err := chain.UnmarshalCBOR(raw, &ts); err != nil {
		return nil, ErrParentTipsetInvalidContent
	}
	return &ts, nil
}

// partitionMessages splits messages by signature variant in a single
// pass, preserving the mempool's ordering within each slice. BLS
// messages are stripped to their unsigned form; their signatures travel
// separately into the aggregate.
func partitionMessages(messages []chain.SignedMessage) (bls []chain.UnsignedMessage, secp []chain.SignedMessage, blsSigs [][]byte) {
	for _, m := range messages {
		switch m.Signature.Kind {
		case chain.SigKindBLS:
			bls = append(bls, m.Message)
			blsSigs = append(blsSigs, m.Signature.Data)
		case chain.SigKindSecp256k1:
			secp = append(secp, m)
		}
	}
	return bls, secp, blsSigs
}

// buildMsgMeta builds the two per-kind AMTs, indexing each entry by its
// position in the original top-K list rather than a per-kind running
// counter.
func (p *Producer) buildMsgMeta(messages []chain.SignedMessage) (cid.Cid, error) {
	blsAmt := amt.New(p.cas)
	secpAmt := amt.New(p.cas)

	for i, m := range messages {
		switch m.Signature.Kind {
		case chain.SigKindBLS:
			if err := blsAmt.SetCBOR(uint64(i), m.Message); err != nil {
				return cid.Undef, errors.Wrap(err, "building bls messages amt")
			}
		case chain.SigKindSecp256k1:
			if err := secpAmt.SetCBOR(uint64(i), m); err != nil {
				return cid.Undef, errors.Wrap(err, "building secp messages amt")
			}
		}
	}

	blsRoot, err := blsAmt.Flush()
	if err != nil {
		return cid.Undef, errors.Wrap(err, "flushing bls messages amt")
	}
	secpRoot, err := secpAmt.Flush()
	if err != nil {
		return cid.Undef, errors.Wrap(err, "flushing secp messages amt")
	}

	meta := chain.MsgMeta{BLSMessages: chain.WrapCID(blsRoot), SECPMessages: chain.WrapCID(secpRoot)}
	c, err := store.PutCBOR(p.cas, &meta)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "storing msg meta")
	}
	return c, nil
}
