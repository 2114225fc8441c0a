// Package runtime defines the execution context built-in actors are
// invoked with, the on-chain Actor record, and the exit-code taxonomy
// actor methods report failures through.
package runtime

import (
	"github.com/filecoin-project/go-address"

	"github.com/didem-chain/blockcore/pkg/chain"
)

// Actor is the on-chain actor record a method invocation receives,
// including its balance and the CID of its current state root.
type Actor struct {
	_       struct{} `cbor:",toarray"`
	Code    chain.CID
	Head    chain.CID
	Nonce   uint64
	Balance chain.BigInt
}

// ExitCode is the integer the runtime attaches to a receipt when an
// actor method returns one of the sentinel errors below.
type ExitCode uint64

const (
	ExitOK ExitCode = 0
	// Actor exit codes start at 16; the range below is reserved for the
	// VM's own system-level codes.
	ExitWrongCaller ExitCode = iota + 15
	ExitIllegalArgument
	ExitIllegalState
	ExitForbidden
	ExitNotFound
	ExitInsufficientFunds
)

// ActorError is an expected control-flow outcome of an actor method. It
// carries the ExitCode the runtime must attach to the receipt; no state
// is committed when an ActorError is returned.
type ActorError struct {
	Code ExitCode
	msg  string
}

func (e *ActorError) Error() string {
	return e.msg
}

func newActorError(code ExitCode, msg string) *ActorError {
	return &ActorError{Code: code, msg: msg}
}

var (
	ErrWrongCaller       = newActorError(ExitWrongCaller, "wrong caller")
	ErrIllegalArgument   = newActorError(ExitIllegalArgument, "illegal argument")
	ErrIllegalState      = newActorError(ExitIllegalState, "illegal state")
	ErrForbidden         = newActorError(ExitForbidden, "forbidden")
	ErrNotFound          = newActorError(ExitNotFound, "not found")
	ErrInsufficientFunds = newActorError(ExitInsufficientFunds, "insufficient funds")
)

// Runtime is the execution context actor methods are invoked with. One
// Runtime instance is scoped to a single top-level message invocation;
// CommitState is the only mutation point.
type Runtime interface {
	ImmediateCaller() chain.Address
	CurrentReceiver() chain.Address
	CurrentEpoch() chain.Epoch
	ValueReceived() chain.BigInt

	// GetState decodes the actor's current state (identified by
	// actor.Head) into out.
	GetState(out interface{}) error
	// CommitState canonically encodes state, stores it in the CAS, and
	// updates the actor record's Head to the resulting CID.
	CommitState(state interface{}) error

	// Send dispatches a cross-actor call.
	Send(to chain.Address, method uint64, params []byte, value chain.BigInt) ([]byte, error)

	// CallerCodeCID returns the code CID of the immediate caller's
	// actor record, for caller-class checks such as "must be an
	// account-class actor".
	CallerCodeCID() chain.CID
}

// WellKnownInitAddress is the init actor's address, ID 1. Only the init
// actor may construct other actors.
var WellKnownInitAddress = mustIDAddress(1)

// AccountCodeCID is the well-known code CID every account-class
// (signable) actor carries. There is no actor-code registry here; a
// runtime tags externally-owned account actors with this fixed CID.
var AccountCodeCID = mustCodeCID("fil/7/account")

// MultisigCodeCID is the code CID multisig wallet actors carry.
var MultisigCodeCID = mustCodeCID("fil/7/multisig")

func mustIDAddress(id uint64) chain.Address {
	a, err := address.NewIDAddress(id)
	if err != nil {
		panic(err)
	}
	return a
}

func mustCodeCID(name string) chain.CID {
	c, err := chain.CIDPrefix.Sum([]byte(name))
	if err != nil {
		panic(err)
	}
	return chain.WrapCID(c)
}

// IsSignable reports whether a code CID identifies an account-class
// actor, one controlled by an external keypair rather than built-in
// logic.
func IsSignable(code chain.CID) bool {
	return code.Cid.Equals(AccountCodeCID.Cid)
}
