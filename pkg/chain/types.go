// Package chain holds the on-chain data model shared by the block
// producer and the built-in actors: tipsets, block headers, messages and
// their signature variants, and the MsgMeta commitment structure.
//
// Every exported struct here is tuple-encoded, deterministic CBOR:
// field order is declaration order and is never reordered without a
// wire-format break.
package chain

import (
	"github.com/ipfs/go-cid"
)

// Epoch is a discrete chain time unit, monotonically increasing.
type Epoch uint64

// Tipset is an ordered sequence of CIDs referencing block headers that
// share a parent set and epoch, decoded from the CAS.
type Tipset struct {
	_            struct{} `cbor:",toarray"`
	Cids         CIDList
	Height       Epoch
	ParentWeight BigInt
}

// Key returns the plain CIDs this tipset references, the form consumed
// by the weight calculator.
func (t *Tipset) Key() []cid.Cid {
	return t.Cids.Unwrap()
}

// SigKind discriminates the two signature variants a SignedMessage can
// carry.
type SigKind uint8

const (
	SigKindUnknown SigKind = iota
	SigKindBLS
	SigKindSecp256k1
)

// Signature is the tagged sum type for BLS / secp256k1 signatures.
// Switches over Kind should be exhaustive.
type Signature struct {
	_    struct{} `cbor:",toarray"`
	Kind SigKind
	Data []byte
}

func BLSSignature(data []byte) Signature {
	return Signature{Kind: SigKindBLS, Data: data}
}

func Secp256k1Signature(data []byte) Signature {
	return Signature{Kind: SigKindSecp256k1, Data: data}
}

// UnsignedMessage carries sender, receiver, nonce, value, method number,
// parameter bytes and gas fields.
type UnsignedMessage struct {
	_          struct{} `cbor:",toarray"`
	Version    uint64
	To         Addr
	From       Addr
	Nonce      uint64
	Value      BigInt
	GasLimit   int64
	GasFeeCap  BigInt
	GasPremium BigInt
	Method     uint64
	Params     []byte
}

// SignedMessage wraps an UnsignedMessage with one of the two signature
// variants.
type SignedMessage struct {
	_         struct{} `cbor:",toarray"`
	Message   UnsignedMessage
	Signature Signature
}

// Cid returns the content identifier of the signed message's canonical
// encoding, the identity the mempool dedupes on.
func (m *SignedMessage) Cid() (cid.Cid, error) {
	data, err := MarshalCBOR(m)
	if err != nil {
		return cid.Undef, err
	}
	return sumCBOR(data)
}

// MsgMeta records the AMT roots of the BLS-aggregated and secp-signed
// message arrays built for a block.
type MsgMeta struct {
	_            struct{} `cbor:",toarray"`
	BLSMessages  CID
	SECPMessages CID
}

// BlockHeader is the deterministically-serialized block header.
// BlockSignature is left empty by the producer and filled by the miner
// actor's signing step.
type BlockHeader struct {
	_                     struct{} `cbor:",toarray"`
	Miner                 Addr
	Ticket                []byte
	ElectionProof         []byte
	Parents               CIDList
	ParentWeight          BigInt
	Height                Epoch
	ParentStateRoot       CID
	ParentMessageReceipts CID
	Messages              CID
	BLSAggregate          []byte
	Timestamp             uint64
	BlockSignature        []byte
	ForkSignaling         uint64
}

// Block is the producer's output: a header plus the two message arrays
// in their original mempool order.
type Block struct {
	Header       *BlockHeader
	BLSMessages  []UnsignedMessage
	SECPMessages []SignedMessage
}

// Cid returns the content identifier of the block's header.
func (b *Block) Cid() (cid.Cid, error) {
	data, err := MarshalCBOR(b.Header)
	if err != nil {
		return cid.Undef, err
	}
	return sumCBOR(data)
}
