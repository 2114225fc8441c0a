package mempool

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/didem-chain/blockcore/pkg/chain"
)

// Envelope is the gossip wire form of a pending message: msgpack on the
// outside for the transport layer, with the signed message itself kept
// in its canonical CBOR bytes so relaying never re-encodes it.
type Envelope struct {
	From string `msgpack:"f,omitempty"`
	Ts   int64  `msgpack:"ts"`
	Raw  []byte `msgpack:"m"`
}

func (e *Envelope) Marshal() ([]byte, error) {
	return msgpack.Marshal(e)
}

func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	e := &Envelope{}
	if err := msgpack.Unmarshal(data, e); err != nil {
		return nil, errors.Wrap(err, "unmarshalling envelope")
	}
	return e, nil
}

// NewEnvelope wraps a signed message for gossip.
func NewEnvelope(from string, ts int64, msg *chain.SignedMessage) (*Envelope, error) {
	raw, err := chain.MarshalCBOR(msg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding message")
	}
	return &Envelope{From: from, Ts: ts, Raw: raw}, nil
}

// Ingest decodes a gossiped envelope and adds its message to the pool.
func (p *Pool) Ingest(data []byte) error {
	e, err := UnmarshalEnvelope(data)
	if err != nil {
		return err
	}

	var msg chain.SignedMessage
	if err := chain.UnmarshalCBOR(e.Raw, &msg); err != nil {
		return errors.Wrap(err, "decoding enveloped message")
	}

	return p.Add(msg)
}
