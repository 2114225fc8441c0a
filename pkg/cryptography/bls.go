// Package cryptography provides the signing primitives behind the two
// message signature kinds: BLS12-381 keys with signature aggregation for
// the block producer's aggregate, and secp256k1 keys for
// individually-signed messages. Keys are passed around as plain byte
// slices.
package cryptography

import (
	"crypto"
	"io"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	sig "github.com/drand/kyber/sign/bls"
	"github.com/drand/kyber/util/random"
	"github.com/pkg/errors"
)

var (
	_ crypto.PrivateKey = (*Bls12381PrivateKey)(nil)
	_ crypto.PublicKey  = (*Bls12381PublicKey)(nil)

	pairing = bls.NewBLS12381Suite()

	// Signatures live on G1, public keys on G2, so aggregation sums
	// 48-byte G1 points and public keys marshal at 96 bytes.
	scheme = sig.NewSchemeOnG1(pairing)
)

// NewBls12381PrivateKey draws a fresh scalar on G1 as a signing key.
func NewBls12381PrivateKey() *Bls12381PrivateKey {
	return &Bls12381PrivateKey{
		pairing.G1().Scalar().Pick(random.New()),
	}
}

type Bls12381PrivateKey struct {
	sk kyber.Scalar
}

func (b *Bls12381PrivateKey) Sign(_ io.Reader, digest []byte, _ crypto.SignerOpts) (signature []byte, err error) {
	return scheme.Sign(b.sk, digest)
}

func (b *Bls12381PrivateKey) Public() crypto.PublicKey {
	pk := pairing.G2().Point().Mul(b.sk, nil)
	return &Bls12381PublicKey{pk}
}

func (b *Bls12381PrivateKey) Equal(obls crypto.PrivateKey) bool {
	o, ok := obls.(*Bls12381PrivateKey)
	return ok && b.sk.Equal(o.sk)
}

// Bls12381PublicKey is a point on G2, the verification key paired against
// G1 signatures under scheme.
type Bls12381PublicKey struct {
	kyber.Point
}

func (b *Bls12381PublicKey) Bytes() ([]byte, error) {
	return b.Point.MarshalBinary()
}

func UnmarshalBls12381PublicKey(data []byte) (*Bls12381PublicKey, error) {
	pk := &Bls12381PublicKey{pairing.G2().Point()}
	if err := pk.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "unmarshalling bls public key")
	}
	return pk, nil
}

func (b *Bls12381PublicKey) Verify(signature, msg []byte) (bool, error) {
	if err := scheme.Verify(b.Point, msg, signature); err != nil {
		return false, err
	}
	return true, nil
}
