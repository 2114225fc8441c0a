// Package vm interprets a parent tipset into a post-execution state
// root and receipts root. Messages addressed to a multisig actor are
// dispatched through pkg/actors/multisig; everything else only moves
// value, since no other built-in actor lives in this module.
package vm

import (
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/didem-chain/blockcore/pkg/actors/multisig"
	"github.com/didem-chain/blockcore/pkg/amt"
	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/runtime"
	"github.com/didem-chain/blockcore/pkg/store"
)

// Interpreter is the VM capability the block producer consumes.
type Interpreter interface {
	Interpret(cas store.Store, parentTipset *chain.Tipset, indices interface{}) (stateRoot cid.Cid, receiptsRoot cid.Cid, err error)
}

var _ Interpreter = (*ActorVM)(nil)

// ActorVM is the reference Interpreter. It walks the parent tipset's
// first block header to find the state tree to execute against, reads
// that block's committed messages, and applies any message addressed to
// a multisig actor through pkg/actors/multisig's dispatch table.
type ActorVM struct {
	MultisigCode chain.CID
}

// NewActorVM builds an ActorVM that dispatches into actors whose code
// CID equals multisigCode.
func NewActorVM(multisigCode chain.CID) *ActorVM {
	return &ActorVM{MultisigCode: multisigCode}
}

func (vm *ActorVM) Interpret(cas store.Store, ts *chain.Tipset, indices interface{}) (cid.Cid, cid.Cid, error) {
	if len(ts.Cids) == 0 {
		return cid.Undef, cid.Undef, errors.New("vm: empty parent tipset")
	}

	var header chain.BlockHeader
	if err := store.GetCBOR(cas, ts.Cids[0].Cid, &header); err != nil {
		return cid.Undef, cid.Undef, errors.Wrap(err, "vm: loading parent block header")
	}

	tree, err := loadStateTree(cas, header.ParentStateRoot.Cid)
	if err != nil {
		return cid.Undef, cid.Undef, errors.Wrap(err, "vm: loading state tree")
	}

	if header.Messages.Cid.Defined() {
		var meta chain.MsgMeta
		if err := store.GetCBOR(cas, header.Messages.Cid, &meta); err != nil {
			return cid.Undef, cid.Undef, errors.Wrap(err, "vm: loading msg meta")
		}
		if err := vm.applyMessages(cas, tree, header.Height, meta); err != nil {
			return cid.Undef, cid.Undef, errors.Wrap(err, "vm: applying messages")
		}
	}

	stateRoot, err := tree.flush(cas)
	if err != nil {
		return cid.Undef, cid.Undef, errors.Wrap(err, "vm: flushing state tree")
	}

	receiptsRoot, err := amt.New(cas).Flush()
	if err != nil {
		return cid.Undef, cid.Undef, errors.Wrap(err, "vm: flushing empty receipts amt")
	}

	return stateRoot, receiptsRoot, nil
}

func (vm *ActorVM) applyMessages(cas store.Store, tree *stateTree, height chain.Epoch, meta chain.MsgMeta) error {
	for _, msg := range decodeUnsigned(cas, meta.BLSMessages.Cid) {
		if err := vm.applyOne(cas, tree, height, msg); err != nil {
			return err
		}
	}
	for _, signed := range decodeSigned(cas, meta.SECPMessages.Cid) {
		if err := vm.applyOne(cas, tree, height, signed.Message); err != nil {
			return err
		}
	}
	return nil
}

func (vm *ActorVM) applyOne(cas store.Store, tree *stateTree, height chain.Epoch, msg chain.UnsignedMessage) error {
	to := msg.To.Unwrap()
	actor := tree.get(to)

	// Value moves before dispatch, so the callee sees its balance
	// already credited.
	from := tree.get(msg.From.Unwrap())
	from.Balance = from.Balance.Sub(msg.Value)
	actor.Balance = actor.Balance.Add(msg.Value)
	tree.put(msg.From.Unwrap(), from)
	tree.put(to, actor)

	// No other built-in actor is implemented here; for anything but the
	// multisig the value transfer is the whole effect.
	if !actor.Code.Cid.Equals(vm.MultisigCode.Cid) {
		return nil
	}

	handler, ok := multisig.Exports[msg.Method]
	if !ok {
		return nil
	}

	// Actor errors are expected control-flow outcomes: no actor state is
	// committed and the block still executes. The handler's error is
	// dropped here; no receipt is recorded for it, and the receipts root
	// is always that of an empty AMT.
	rt := &casRuntime{cas: cas, tree: tree, caller: msg.From.Unwrap(), receiver: to, epoch: height, value: msg.Value}
	_, _ = handler(rt, actor, msg.Params)
	return nil
}

var _ runtime.Runtime = (*casRuntime)(nil)

// casRuntime is the Runtime a message execution is scoped to: one
// cross-actor Send, one GetState/CommitState pair against the receiver's
// actor record in the in-flight state tree.
type casRuntime struct {
	cas      store.Store
	tree     *stateTree
	caller   chain.Address
	receiver chain.Address
	epoch    chain.Epoch
	value    chain.BigInt
}

func (r *casRuntime) ImmediateCaller() chain.Address { return r.caller }
func (r *casRuntime) CurrentReceiver() chain.Address { return r.receiver }
func (r *casRuntime) CurrentEpoch() chain.Epoch      { return r.epoch }
func (r *casRuntime) ValueReceived() chain.BigInt    { return r.value }

func (r *casRuntime) CallerCodeCID() chain.CID {
	return r.tree.get(r.caller).Code
}

func (r *casRuntime) GetState(out interface{}) error {
	actor := r.tree.get(r.receiver)
	if !actor.Head.Cid.Defined() {
		return nil
	}
	return store.GetCBOR(r.cas, actor.Head.Cid, out)
}

func (r *casRuntime) CommitState(state interface{}) error {
	c, err := store.PutCBOR(r.cas, state)
	if err != nil {
		return err
	}
	actor := r.tree.get(r.receiver)
	actor.Head = chain.WrapCID(c)
	r.tree.put(r.receiver, actor)
	return nil
}

func (r *casRuntime) Send(to chain.Address, method uint64, params []byte, value chain.BigInt) ([]byte, error) {
	from := r.tree.get(r.receiver)
	from.Balance = from.Balance.Sub(value)
	r.tree.put(r.receiver, from)

	dest := r.tree.get(to)
	dest.Balance = dest.Balance.Add(value)
	r.tree.put(to, dest)
	return nil, nil
}

func sortedIndices(entries map[uint64][]byte) []uint64 {
	idx := make([]uint64, 0, len(entries))
	for i := range entries {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// decodeUnsigned and decodeSigned read every entry back in ascending
// index order: the AMT indices are sparse within one kind's array, but
// execution order must still follow the original mempool ordering for
// the result to be deterministic.
func decodeUnsigned(cas store.Store, root cid.Cid) []chain.UnsignedMessage {
	if !root.Defined() {
		return nil
	}
	entries, err := amt.All(cas, root)
	if err != nil {
		return nil
	}
	out := make([]chain.UnsignedMessage, 0, len(entries))
	for _, i := range sortedIndices(entries) {
		var m chain.UnsignedMessage
		if err := chain.UnmarshalCBOR(entries[i], &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func decodeSigned(cas store.Store, root cid.Cid) []chain.SignedMessage {
	if !root.Defined() {
		return nil
	}
	entries, err := amt.All(cas, root)
	if err != nil {
		return nil
	}
	out := make([]chain.SignedMessage, 0, len(entries))
	for _, i := range sortedIndices(entries) {
		var m chain.SignedMessage
		if err := chain.UnmarshalCBOR(entries[i], &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}
