package multisig

import (
	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/runtime"
)

// Method numbers 1-8, in declaration order. SwapSigner and
// ChangeThreshold get distinct numbers; collapsing them onto one number
// would make the dispatch table ambiguous.
const (
	MethodConstruct       uint64 = 1
	MethodPropose         uint64 = 2
	MethodApprove         uint64 = 3
	MethodCancel          uint64 = 4
	MethodAddSigner       uint64 = 5
	MethodRemoveSigner    uint64 = 6
	MethodSwapSigner      uint64 = 7
	MethodChangeThreshold uint64 = 8
)

// Exports maps method numbers to handlers.
var Exports = map[uint64]func(rt runtime.Runtime, actor *runtime.Actor, params []byte) ([]byte, error){
	MethodConstruct:       dispatchConstruct,
	MethodPropose:         dispatchPropose,
	MethodApprove:         dispatchApprove,
	MethodCancel:          dispatchCancel,
	MethodAddSigner:       dispatchAddSigner,
	MethodRemoveSigner:    dispatchRemoveSigner,
	MethodSwapSigner:      dispatchSwapSigner,
	MethodChangeThreshold: dispatchChangeThreshold,
}

// ConstructParams are Construct's arguments.
type ConstructParams struct {
	_              struct{} `cbor:",toarray"`
	Signers        chain.AddrList
	Threshold      uint64
	UnlockDuration chain.Epoch
}

// Construct initializes a freshly-created multisig actor. Only the init
// actor may call it. The received value vests linearly over
// UnlockDuration epochs; with no lock the initial balance is zero.
func Construct(rt runtime.Runtime, actor *runtime.Actor, params *ConstructParams) error {
	if rt.ImmediateCaller() != runtime.WellKnownInitAddress {
		return runtime.ErrWrongCaller
	}
	if uint64(len(params.Signers)) < params.Threshold || params.Threshold < 1 {
		return runtime.ErrIllegalArgument
	}

	state := State{
		Signers:           params.Signers,
		Threshold:         params.Threshold,
		NextTransactionID: 0,
		InitialBalance:    chain.NewBigInt(0),
		StartEpoch:        rt.CurrentEpoch(),
		UnlockDuration:    params.UnlockDuration,
	}
	if params.UnlockDuration > 0 {
		state.InitialBalance = rt.ValueReceived()
	}

	return rt.CommitState(&state)
}

// ProposeParams are Propose's arguments: the call the multisig will
// make once the threshold is reached.
type ProposeParams struct {
	_      struct{} `cbor:",toarray"`
	To     chain.Addr
	Value  chain.BigInt
	Method uint64
	Params []byte
}

// ProposeReturn carries the allocated transaction number back to the
// caller.
type ProposeReturn struct {
	_                 struct{} `cbor:",toarray"`
	TransactionNumber uint64
}

// Propose allocates a new pending transaction and immediately records
// the caller's own approval of it, which executes the call at once when
// the threshold is 1.
func Propose(rt runtime.Runtime, actor *runtime.Actor, params *ProposeParams) (*ProposeReturn, error) {
	if !runtime.IsSignable(rt.CallerCodeCID()) {
		return nil, runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return nil, err
	}

	txNumber := state.NextTransactionID
	state.NextTransactionID++
	state.PendingTransactions = append(state.PendingTransactions, Transaction{
		TransactionNumber: txNumber,
		To:                params.To,
		Value:             params.Value,
		Method:            params.Method,
		Params:            params.Params,
	})

	if err := approveTransaction(rt, actor, &state, txNumber); err != nil {
		return nil, err
	}
	if err := rt.CommitState(&state); err != nil {
		return nil, err
	}
	return &ProposeReturn{TransactionNumber: txNumber}, nil
}

// ApproveParams are Approve's and Cancel's shared argument shape.
type ApproveParams struct {
	_                 struct{} `cbor:",toarray"`
	TransactionNumber uint64
}

// Approve records the caller's approval of a pending transaction,
// executing it once the threshold is met.
func Approve(rt runtime.Runtime, actor *runtime.Actor, params *ApproveParams) error {
	if !runtime.IsSignable(rt.CallerCodeCID()) {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}
	if err := approveTransaction(rt, actor, &state, params.TransactionNumber); err != nil {
		return err
	}
	return rt.CommitState(&state)
}

// Cancel withdraws a pending transaction. Only its proposer may cancel
// it.
func Cancel(rt runtime.Runtime, actor *runtime.Actor, params *ApproveParams) error {
	if !runtime.IsSignable(rt.CallerCodeCID()) {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}

	caller := rt.ImmediateCaller()
	if !state.isSigner(caller) {
		return runtime.ErrForbidden
	}

	i := state.findPending(params.TransactionNumber)
	if i < 0 {
		return runtime.ErrForbidden
	}
	if len(state.PendingTransactions[i].Approved) == 0 || state.PendingTransactions[i].Approved[0].Unwrap() != caller {
		return runtime.ErrForbidden
	}
	state.deletePending(i)

	return rt.CommitState(&state)
}

// AddSignerParams are AddSigner's arguments.
type AddSignerParams struct {
	_                 struct{} `cbor:",toarray"`
	Signer            chain.Addr
	IncreaseThreshold bool
}

// AddSigner appends a new signer, optionally raising the threshold.
// Callable only by the wallet itself, through an approved transaction.
func AddSigner(rt runtime.Runtime, actor *runtime.Actor, params *AddSignerParams) error {
	if rt.ImmediateCaller() != rt.CurrentReceiver() {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}

	signer := params.Signer.Unwrap()
	if state.isSigner(signer) {
		return runtime.ErrIllegalArgument
	}
	state.Signers = append(state.Signers, params.Signer)
	if params.IncreaseThreshold {
		state.Threshold++
	}

	return rt.CommitState(&state)
}

// RemoveSignerParams are RemoveSigner's arguments.
type RemoveSignerParams struct {
	_                 struct{} `cbor:",toarray"`
	Signer            chain.Addr
	DecreaseThreshold bool
}

// RemoveSigner removes a signer, optionally lowering the threshold. The
// call is rejected wholesale if the resulting threshold would leave
// 1 <= threshold <= |signers| violated; no partial mutation is
// observable.
func RemoveSigner(rt runtime.Runtime, actor *runtime.Actor, params *RemoveSignerParams) error {
	if rt.ImmediateCaller() != rt.CurrentReceiver() {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}

	signer := params.Signer.Unwrap()
	idx := state.Signers.IndexOf(signer)
	if idx < 0 {
		return runtime.ErrForbidden
	}

	newSigners := make(chain.AddrList, 0, len(state.Signers)-1)
	newSigners = append(newSigners, state.Signers[:idx]...)
	newSigners = append(newSigners, state.Signers[idx+1:]...)

	newThreshold := state.Threshold
	if params.DecreaseThreshold {
		newThreshold--
	}
	if newThreshold < 1 || uint64(len(newSigners)) < newThreshold {
		return runtime.ErrIllegalArgument
	}

	state.Signers = newSigners
	state.Threshold = newThreshold
	return rt.CommitState(&state)
}

// SwapSignerParams are SwapSigner's arguments.
type SwapSignerParams struct {
	_         struct{} `cbor:",toarray"`
	OldSigner chain.Addr
	NewSigner chain.Addr
}

// SwapSigner replaces one signer with another in place. Position is
// preserved: a pending transaction's proposer is identified by slot 0 of
// its approved list.
func SwapSigner(rt runtime.Runtime, actor *runtime.Actor, params *SwapSignerParams) error {
	if rt.ImmediateCaller() != rt.CurrentReceiver() {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}

	newSigner := params.NewSigner.Unwrap()
	if state.isSigner(newSigner) {
		return runtime.ErrIllegalArgument
	}
	idx := state.Signers.IndexOf(params.OldSigner.Unwrap())
	if idx < 0 {
		return runtime.ErrNotFound
	}
	state.Signers[idx] = params.NewSigner

	return rt.CommitState(&state)
}

// ChangeThresholdParams are ChangeThreshold's arguments.
type ChangeThresholdParams struct {
	_            struct{} `cbor:",toarray"`
	NewThreshold uint64
}

// ChangeThreshold sets a new threshold. Zero is rejected explicitly; a
// wallet with threshold 0 could never execute anything again.
func ChangeThreshold(rt runtime.Runtime, actor *runtime.Actor, params *ChangeThresholdParams) error {
	if rt.ImmediateCaller() != rt.CurrentReceiver() {
		return runtime.ErrWrongCaller
	}

	var state State
	if err := rt.GetState(&state); err != nil {
		return err
	}

	if params.NewThreshold < 1 || params.NewThreshold > uint64(len(state.Signers)) {
		return runtime.ErrIllegalArgument
	}
	state.Threshold = params.NewThreshold

	return rt.CommitState(&state)
}

// approveTransaction is the approval/execution step shared by Propose
// and Approve.
func approveTransaction(rt runtime.Runtime, actor *runtime.Actor, state *State, txNumber uint64) error {
	caller := rt.ImmediateCaller()
	if !state.isSigner(caller) {
		return runtime.ErrForbidden
	}

	i := state.findPending(txNumber)
	if i < 0 {
		return runtime.ErrNotFound
	}
	tx := &state.PendingTransactions[i]

	if tx.Approved.Contains(caller) {
		return runtime.ErrIllegalState
	}
	tx.Approved = append(tx.Approved, chain.WrapAddr(caller))

	if uint64(len(tx.Approved)) < state.Threshold {
		return nil
	}

	if actor.Balance.Cmp(tx.Value) < 0 {
		return runtime.ErrInsufficientFunds
	}
	locked := state.AmountLocked(rt.CurrentEpoch())
	if actor.Balance.Sub(tx.Value).Cmp(locked) < 0 {
		return runtime.ErrInsufficientFunds
	}

	// Return value intentionally discarded: a failed downstream call
	// still consumes the pending transaction and does not refund.
	_, _ = rt.Send(tx.To.Unwrap(), tx.Method, tx.Params, tx.Value)

	state.deletePending(i)
	return nil
}

// dispatch* adapt the typed method bodies above to Exports' uniform
// bytes-in/bytes-out handler shape.

func dispatchConstruct(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params ConstructParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, Construct(rt, actor, &params)
}

func dispatchPropose(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params ProposeParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	ret, err := Propose(rt, actor, &params)
	if err != nil {
		return nil, err
	}
	return chain.MarshalCBOR(ret)
}

func dispatchApprove(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params ApproveParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, Approve(rt, actor, &params)
}

func dispatchCancel(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params ApproveParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, Cancel(rt, actor, &params)
}

func dispatchAddSigner(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params AddSignerParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, AddSigner(rt, actor, &params)
}

func dispatchRemoveSigner(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params RemoveSignerParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, RemoveSigner(rt, actor, &params)
}

func dispatchSwapSigner(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params SwapSignerParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, SwapSigner(rt, actor, &params)
}

func dispatchChangeThreshold(rt runtime.Runtime, actor *runtime.Actor, raw []byte) ([]byte, error) {
	var params ChangeThresholdParams
	if err := chain.UnmarshalCBOR(raw, &params); err != nil {
		return nil, runtime.ErrIllegalArgument
	}
	return nil, ChangeThreshold(rt, actor, &params)
}
