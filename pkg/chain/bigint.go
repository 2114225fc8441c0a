package chain

import (
	"math/big"

	"github.com/pkg/errors"
)

// BigInt is the tuple-encodable big-integer field type used for balances,
// parent weight, and vesting amounts. CBOR represents it as a byte
// string: a leading sign byte (0x00 positive/zero, 0x01 negative)
// followed by the big-endian magnitude.
type BigInt struct {
	Int *big.Int
}

func NewBigInt(i int64) BigInt {
	return BigInt{big.NewInt(i)}
}

func BigFromBytes(b []byte) BigInt {
	return BigInt{new(big.Int).SetBytes(b)}
}

func (b BigInt) val() *big.Int {
	if b.Int == nil {
		return big.NewInt(0)
	}
	return b.Int
}

func (b BigInt) Add(o BigInt) BigInt {
	return BigInt{new(big.Int).Add(b.val(), o.val())}
}

func (b BigInt) Sub(o BigInt) BigInt {
	return BigInt{new(big.Int).Sub(b.val(), o.val())}
}

func (b BigInt) Cmp(o BigInt) int {
	return b.val().Cmp(o.val())
}

func (b BigInt) Sign() int {
	return b.val().Sign()
}

// LockedVestingAmount returns the still-locked portion of a linearly
// vesting balance at currentEpoch. Division precedes multiplication;
// every node must floor at the same point for state roots to agree, so
// the lossier ordering is load-bearing and must not be "fixed".
func LockedVestingAmount(initialBalance BigInt, startEpoch, unlockDuration, currentEpoch Epoch) BigInt {
	if unlockDuration == 0 {
		return NewBigInt(0)
	}
	if currentEpoch < startEpoch {
		return initialBalance
	}
	elapsed := currentEpoch - startEpoch
	if int64(elapsed) >= int64(unlockDuration) {
		return NewBigInt(0)
	}
	quotient := new(big.Int).Div(initialBalance.val(), big.NewInt(int64(unlockDuration)))
	return BigInt{new(big.Int).Mul(quotient, big.NewInt(int64(elapsed)))}
}

func (b BigInt) MarshalCBOR() ([]byte, error) {
	v := b.val()
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	magnitude := new(big.Int).Abs(v).Bytes()
	buf := make([]byte, 0, len(magnitude)+1)
	buf = append(buf, sign)
	buf = append(buf, magnitude...)
	return encMode.Marshal(buf)
}

func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshalling bigint bytes")
	}
	if len(raw) == 0 {
		b.Int = big.NewInt(0)
		return nil
	}
	mag := new(big.Int).SetBytes(raw[1:])
	if raw[0] == 1 {
		mag.Neg(mag)
	}
	b.Int = mag
	return nil
}
