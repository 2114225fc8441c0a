package chain

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// CIDPrefix is the one CID construction recipe used throughout CAS, AMT
// and block hashing: DAG-CBOR codec, SHA2-256 digest. A single recipe
// keeps every content-addressed write comparable by CID alone.
var CIDPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// sumCBOR hashes already-serialized canonical CBOR bytes into a CID.
func sumCBOR(data []byte) (cid.Cid, error) {
	return CIDPrefix.Sum(data)
}

// encMode/decMode give every on-chain struct canonical, deterministic CBOR:
// map key order and integer widths are fixed so that two encoders never
// disagree on the bytes for the same logical value.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(errors.Wrap(err, "building canonical cbor encoder"))
	}
	encMode = em

	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(errors.Wrap(err, "building cbor decoder"))
	}
	decMode = dm
}

// MarshalCBOR encodes v using the canonical mode shared by every on-chain
// struct in this module.
func MarshalCBOR(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes data into v using the shared decoder.
func UnmarshalCBOR(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// CID wraps cid.Cid so it can appear as a field inside a `cbor:",toarray"`
// tuple-encoded struct: cid.Cid has no CBOR methods of its own, so it is
// round-tripped here as its raw byte representation.
type CID struct {
	cid.Cid
}

// WrapCID lifts a cid.Cid into the tuple-encodable wrapper.
func WrapCID(c cid.Cid) CID { return CID{c} }

// Undef is the zero-value CID, used for header fields that have not yet
// been filled in (e.g. a block's own CID before it has been stored).
var Undef = CID{cid.Undef}

func (c CID) MarshalCBOR() ([]byte, error) {
	if !c.Cid.Defined() {
		return encMode.Marshal([]byte{})
	}
	return encMode.Marshal(c.Cid.Bytes())
}

func (c *CID) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshalling cid bytes")
	}
	if len(raw) == 0 {
		c.Cid = cid.Undef
		return nil
	}
	parsed, err := cid.Cast(raw)
	if err != nil {
		return errors.Wrap(err, "casting cid")
	}
	c.Cid = parsed
	return nil
}

// CIDList wraps a []cid.Cid the same way, used for parents/child lists.
type CIDList []CID

func WrapCIDs(cids []cid.Cid) CIDList {
	out := make(CIDList, len(cids))
	for i, c := range cids {
		out[i] = WrapCID(c)
	}
	return out
}

func (l CIDList) Unwrap() []cid.Cid {
	out := make([]cid.Cid, len(l))
	for i, c := range l {
		out[i] = c.Cid
	}
	return out
}
