// Package multisig implements the multisig wallet actor: an ordered
// signer set with a signing threshold, a queue of pending transactions
// awaiting approvals, and linear vesting of the initial balance.
// Methods return errors carrying a runtime.ExitCode; a method that
// errors commits no state.
package multisig

import (
	"github.com/didem-chain/blockcore/pkg/chain"
)

// State is the on-chain multisig actor state.
type State struct {
	_                   struct{} `cbor:",toarray"`
	Signers             chain.AddrList
	Threshold           uint64
	NextTransactionID   uint64
	InitialBalance      chain.BigInt
	StartEpoch          chain.Epoch
	UnlockDuration      chain.Epoch
	PendingTransactions []Transaction
}

// Transaction is a proposed call awaiting sufficient approvals.
// Approved[0] is always the proposer.
type Transaction struct {
	_                 struct{} `cbor:",toarray"`
	TransactionNumber uint64
	To                chain.Addr
	Value             chain.BigInt
	Method            uint64
	Params            []byte
	Approved          chain.AddrList
}

// isSigner reports whether addr appears in the signer set.
func (s *State) isSigner(addr chain.Address) bool {
	return s.Signers.Contains(addr)
}

// findPending returns the index of the pending transaction with the
// given number, or -1 if none exists.
func (s *State) findPending(txNumber uint64) int {
	for i := range s.PendingTransactions {
		if s.PendingTransactions[i].TransactionNumber == txNumber {
			return i
		}
	}
	return -1
}

// deletePending removes the pending transaction at index i, preserving
// the order of the rest.
func (s *State) deletePending(i int) {
	s.PendingTransactions = append(s.PendingTransactions[:i], s.PendingTransactions[i+1:]...)
}

// AmountLocked returns the portion of InitialBalance still locked at
// currentEpoch. The division-before-multiplication ordering lives in
// chain.LockedVestingAmount, in exactly one place.
func (s *State) AmountLocked(currentEpoch chain.Epoch) chain.BigInt {
	return chain.LockedVestingAmount(s.InitialBalance, s.StartEpoch, s.UnlockDuration, currentEpoch)
}
