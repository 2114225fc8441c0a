package chain

import (
	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"
)

// Address re-exports the ecosystem address type so callers never need to
// import go-address directly.
type Address = address.Address

// addrCBOR wraps Address for tuple encoding, the same round-trip CID
// gets in cbor.go: go-address.Address has no CBOR methods, only a byte
// encoding.
type addrCBOR struct {
	a Address
}

func (a addrCBOR) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(a.a.Bytes())
}

func (a *addrCBOR) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshalling address bytes")
	}
	if len(raw) == 0 {
		a.a = address.Undef
		return nil
	}
	addr, err := address.NewFromBytes(raw)
	if err != nil {
		return errors.Wrap(err, "parsing address")
	}
	a.a = addr
	return nil
}

// Addr is the tuple-encodable field type used on wire structs; Unwrap
// returns the plain Address for application code.
type Addr struct {
	addrCBOR
}

func WrapAddr(a Address) Addr { return Addr{addrCBOR{a}} }

func (a Addr) Unwrap() Address { return a.a }

// AddrList wraps a slice of addresses for tuple-encoded struct fields
// such as the multisig actor's signer list.
type AddrList []Addr

func WrapAddrs(as []Address) AddrList {
	out := make(AddrList, len(as))
	for i, a := range as {
		out[i] = WrapAddr(a)
	}
	return out
}

func (l AddrList) Unwrap() []Address {
	out := make([]Address, len(l))
	for i, a := range l {
		out[i] = a.Unwrap()
	}
	return out
}

func (l AddrList) Contains(a Address) bool {
	for _, x := range l {
		if x.Unwrap() == a {
			return true
		}
	}
	return false
}

func (l AddrList) IndexOf(a Address) int {
	for i, x := range l {
		if x.Unwrap() == a {
			return i
		}
	}
	return -1
}
