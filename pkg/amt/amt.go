// Package amt implements an array-mapped trie: a persistent,
// content-addressed vector keyed by unsigned integer indices,
// materialized into a CAS at flush time. Node layout (bitmap + child
// links + inline leaf values under a height/count root record) follows
// github.com/filecoin-project/go-amt-ipld closely enough that the two
// are interchangeable from a caller's perspective.
package amt

import (
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/store"
)

// DefaultBitWidth gives a fan-out of 2^3 = 8, the go-amt-ipld default.
const DefaultBitWidth = 3

// Root is the structure the AMT flushes and the CAS stores: height,
// element count, and the CID of the top node.
type Root struct {
	_        struct{} `cbor:",toarray"`
	BitWidth uint64
	Height   uint64
	Count    uint64
	Node     nodeRef
}

// node is one level of the trie: a bitmap of populated slots, followed
// by either links to child nodes (internal levels) or inline values
// (leaf level).
type node struct {
	_      struct{} `cbor:",toarray"`
	Bitmap []byte
	Links  []nodeRef
	Values [][]byte
}

// nodeRef is the wrapper used so a node's CID round-trips through CBOR;
// see chain.CID for the same treatment of header fields.
type nodeRef struct {
	_   struct{} `cbor:",toarray"`
	Cid []byte
}

const width = 1 << DefaultBitWidth

// AMT is a persistent vector builder: Set buffers entries in memory,
// Flush materializes the trie into the CAS and returns its root CID.
// Two AMTs fed the same (index, bytes) pairs flush to identical CIDs.
type AMT struct {
	cas     store.Store
	entries map[uint64][]byte
	maxIdx  uint64
	count   uint64
}

func New(cas store.Store) *AMT {
	return &AMT{cas: cas, entries: make(map[uint64][]byte)}
}

// Set stores value at index, overwriting any previous value there.
func (a *AMT) Set(index uint64, value []byte) {
	if _, exists := a.entries[index]; !exists {
		a.count++
	}
	a.entries[index] = value
	if index+1 > a.maxIdx {
		a.maxIdx = index + 1
	}
}

// SetCBOR canonically encodes value and stores it at index.
func (a *AMT) SetCBOR(index uint64, value interface{}) error {
	data, err := chain.MarshalCBOR(value)
	if err != nil {
		return errors.Wrap(err, "encoding amt entry")
	}
	a.Set(index, data)
	return nil
}

// height returns the number of internal levels above the leaves needed
// to address maxIdx entries at the configured fan-out.
func (a *AMT) height() uint64 {
	h := uint64(0)
	capAt := uint64(width)
	for capAt < a.maxIdx && a.maxIdx > 0 {
		capAt *= width
		h++
	}
	return h
}

// Flush writes every populated node to the CAS bottom-up and returns the
// CID of the Root record. An empty AMT (no Set calls) still flushes to a
// valid, deterministic root with Count == 0.
func (a *AMT) Flush() (cid.Cid, error) {
	h := a.height()

	rootNode, err := a.buildLevel(h, 0)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "building amt nodes")
	}

	rootRef, err := a.putNode(rootNode)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "flushing amt root node")
	}

	root := Root{
		BitWidth: DefaultBitWidth,
		Height:   h,
		Count:    a.count,
		Node:     rootRef,
	}

	c, err := store.PutCBOR(a.cas, &root)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "storing amt root")
	}
	return c, nil
}

// buildLevel recursively constructs the subtree covering
// [base*width^(height+1), (base+1)*width^(height+1)) at the given
// height, returning the in-memory node (not yet written to the CAS).
func (a *AMT) buildLevel(height uint64, base uint64) (*node, error) {
	n := &node{Bitmap: make([]byte, (width+7)/8)}

	if height == 0 {
		n.Values = make([][]byte, width)
		for i := uint64(0); i < width; i++ {
			idx := base*width + i
			v, ok := a.entries[idx]
			if !ok {
				continue
			}
			setBit(n.Bitmap, i)
			n.Values[i] = v
		}
		return n, nil
	}

	span := pow(width, height)
	n.Links = make([]nodeRef, width)
	for i := uint64(0); i < width; i++ {
		childBase := base*width + i
		if childBase*span >= a.maxIdx {
			continue
		}

		child, err := a.buildLevel(height-1, childBase)
		if err != nil {
			return nil, err
		}
		if !child.hasAny() {
			continue
		}

		ref, err := a.putNode(child)
		if err != nil {
			return nil, err
		}
		setBit(n.Bitmap, i)
		n.Links[i] = ref
	}
	return n, nil
}

func (n *node) hasAny() bool {
	for _, b := range n.Bitmap {
		if b != 0 {
			return true
		}
	}
	return false
}

func (a *AMT) putNode(n *node) (nodeRef, error) {
	c, err := store.PutCBOR(a.cas, n)
	if err != nil {
		return nodeRef{}, err
	}
	return nodeRef{Cid: c.Bytes()}, nil
}

func setBit(bitmap []byte, i uint64) {
	bitmap[i/8] |= 1 << (i % 8)
}

func hasBit(bitmap []byte, i uint64) bool {
	if int(i/8) >= len(bitmap) {
		return false
	}
	return bitmap[i/8]&(1<<(i%8)) != 0
}

func pow(base, exp uint64) uint64 {
	r := uint64(1)
	for i := uint64(0); i < exp; i++ {
		r *= base
	}
	return r
}

// Get reads back the raw bytes stored at index by walking the persisted
// trie rooted at rootCid. Used by tests to confirm what Flush wrote.
func Get(cas store.Store, rootCid cid.Cid, index uint64) ([]byte, error) {
	var root Root
	if err := store.GetCBOR(cas, rootCid, &root); err != nil {
		return nil, errors.Wrap(err, "loading amt root")
	}
	if root.Height == 0 {
		return getLeaf(cas, root.Node, index)
	}
	return getInternal(cas, root.Node, root.Height, index)
}

func getInternal(cas store.Store, ref nodeRef, height uint64, index uint64) ([]byte, error) {
	var n node
	c, err := cid.Cast(ref.Cid)
	if err != nil {
		return nil, err
	}
	if err := store.GetCBOR(cas, c, &n); err != nil {
		return nil, errors.Wrap(err, "loading amt internal node")
	}

	span := pow(width, height)
	slot := index / span
	rem := index % span
	if !hasBit(n.Bitmap, slot) {
		return nil, errors.New("index not present in amt")
	}

	if height == 1 {
		return getLeaf(cas, n.Links[slot], rem)
	}
	return getInternal(cas, n.Links[slot], height-1, rem)
}

// All walks every populated entry in the persisted trie rooted at
// rootCid and returns them keyed by index. Indices may be sparse, so a
// caller cannot assume a contiguous range.
func All(cas store.Store, rootCid cid.Cid) (map[uint64][]byte, error) {
	var root Root
	if err := store.GetCBOR(cas, rootCid, &root); err != nil {
		return nil, errors.Wrap(err, "loading amt root")
	}
	if root.Height == 0 {
		return collectLeaf(cas, root.Node)
	}
	return collectInternal(cas, root.Node, root.Height)
}

// collectInternal returns every populated entry under ref, keyed by
// index local to this subtree (i.e. in [0, width^(height+1))); callers
// offset by the slot's own span when merging into their parent's map.
func collectInternal(cas store.Store, ref nodeRef, height uint64) (map[uint64][]byte, error) {
	var n node
	c, err := cid.Cast(ref.Cid)
	if err != nil {
		return nil, err
	}
	if err := store.GetCBOR(cas, c, &n); err != nil {
		return nil, errors.Wrap(err, "loading amt internal node")
	}

	span := pow(width, height)
	out := make(map[uint64][]byte)
	for i := uint64(0); i < width; i++ {
		if !hasBit(n.Bitmap, i) {
			continue
		}
		var child map[uint64][]byte
		if height == 1 {
			child, err = collectLeaf(cas, n.Links[i])
		} else {
			child, err = collectInternal(cas, n.Links[i], height-1)
		}
		if err != nil {
			return nil, err
		}
		for k, v := range child {
			out[i*span+k] = v
		}
	}
	return out, nil
}

func collectLeaf(cas store.Store, ref nodeRef) (map[uint64][]byte, error) {
	var n node
	c, err := cid.Cast(ref.Cid)
	if err != nil {
		return nil, err
	}
	if err := store.GetCBOR(cas, c, &n); err != nil {
		return nil, errors.Wrap(err, "loading amt leaf node")
	}
	out := make(map[uint64][]byte)
	for i := uint64(0); i < width; i++ {
		if hasBit(n.Bitmap, i) {
			out[i] = n.Values[i]
		}
	}
	return out, nil
}

func getLeaf(cas store.Store, ref nodeRef, index uint64) ([]byte, error) {
	var n node
	c, err := cid.Cast(ref.Cid)
	if err != nil {
		return nil, err
	}
	if err := store.GetCBOR(cas, c, &n); err != nil {
		return nil, errors.Wrap(err, "loading amt leaf node")
	}
	if !hasBit(n.Bitmap, index) {
		return nil, errors.New("index not present in amt")
	}
	return n.Values[index], nil
}
