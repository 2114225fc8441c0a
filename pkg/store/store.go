// Package store implements the content-addressed store: a map from
// content identifier to byte blob, with typed CBOR helpers layered above
// raw get/put.
package store

import (
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/didem-chain/blockcore/pkg/chain"
)

// ErrNotFound is returned by Get when no blob is stored under the given
// CID.
var ErrNotFound = errors.New("not found")

// Store is the CAS interface consumed by the rest of the core.
type Store interface {
	Get(c cid.Cid) ([]byte, error)
	Put(data []byte) (cid.Cid, error)
}

// GetCBOR decodes a typed value stored under c.
func GetCBOR(s Store, c cid.Cid, out interface{}) error {
	data, err := s.Get(c)
	if err != nil {
		return err
	}
	return chain.UnmarshalCBOR(data, out)
}

// PutCBOR canonically encodes v and stores it, returning its CID.
func PutCBOR(s Store, v interface{}) (cid.Cid, error) {
	data, err := chain.MarshalCBOR(v)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "encoding cbor")
	}
	return s.Put(data)
}

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory CAS, safe for concurrent use. Writes are
// idempotent: the same bytes always land under the same CID.
type MemStore struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[cid.Cid][]byte)}
}

func (m *MemStore) Get(c cid.Cid) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[c]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemStore) Put(data []byte) (cid.Cid, error) {
	c, err := chain.CIDPrefix.Sum(data)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "hashing content")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[c]; !exists {
		m.objects[c] = data
	}
	return c, nil
}
