package vm

import (
	"bytes"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/runtime"
	"github.com/didem-chain/blockcore/pkg/store"
)

// stateTreeEntry pairs an address with its actor record for tuple
// encoding. A flat sorted list stands in for a full HAMT; the actor set
// here never grows past a handful of entries.
type stateTreeEntry struct {
	_     struct{} `cbor:",toarray"`
	Addr  chain.Addr
	Actor runtime.Actor
}

type stateTreeWire struct {
	_       struct{} `cbor:",toarray"`
	Entries []stateTreeEntry
}

// stateTree is the in-memory working copy of the actor set a message
// application operates on, materialized from/to the CAS as
// stateTreeWire.
type stateTree struct {
	entries map[chain.Address]*runtime.Actor
}

func newStateTree() *stateTree {
	return &stateTree{entries: make(map[chain.Address]*runtime.Actor)}
}

func loadStateTree(cas store.Store, root cid.Cid) (*stateTree, error) {
	t := newStateTree()
	if !root.Defined() {
		return t, nil
	}
	var wire stateTreeWire
	if err := store.GetCBOR(cas, root, &wire); err != nil {
		return nil, errors.Wrap(err, "decoding state tree")
	}
	for _, e := range wire.Entries {
		a := e.Actor
		t.entries[e.Addr.Unwrap()] = &a
	}
	return t, nil
}

// get returns the actor record for addr, materializing a fresh
// zero-balance account-class actor on first reference: a message can
// always address a new account.
func (t *stateTree) get(addr chain.Address) *runtime.Actor {
	if a, ok := t.entries[addr]; ok {
		return a
	}
	a := &runtime.Actor{Code: runtime.AccountCodeCID, Balance: chain.NewBigInt(0)}
	t.entries[addr] = a
	return a
}

func (t *stateTree) put(addr chain.Address, a *runtime.Actor) {
	t.entries[addr] = a
}

// flush writes the tree back to the CAS in address-byte sorted order so
// two identical trees always encode to the same bytes and therefore the
// same CID.
func (t *stateTree) flush(cas store.Store) (cid.Cid, error) {
	addrs := make([]chain.Address, 0, len(t.entries))
	for a := range t.entries {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})

	wire := stateTreeWire{Entries: make([]stateTreeEntry, 0, len(addrs))}
	for _, a := range addrs {
		wire.Entries = append(wire.Entries, stateTreeEntry{Addr: chain.WrapAddr(a), Actor: *t.entries[a]})
	}

	c, err := store.PutCBOR(cas, &wire)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "flushing state tree")
	}
	return c, nil
}
