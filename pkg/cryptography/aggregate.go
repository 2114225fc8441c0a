package cryptography

import (
	"github.com/pkg/errors"
)

// AggregateBLSSignatures sums BLS signatures as points on G1: given
// sig_i = sk_i * H(m_i), the aggregate sum(sig_i) verifies against the
// corresponding (pubkey, message) pairs under an aggregate-verify
// scheme. An empty input yields an empty aggregate.
func AggregateBLSSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return []byte{}, nil
	}

	acc := pairing.G1().Point()
	if err := acc.UnmarshalBinary(sigs[0]); err != nil {
		return nil, errors.Wrap(err, "unmarshalling bls signature")
	}

	for _, s := range sigs[1:] {
		p := pairing.G1().Point()
		if err := p.UnmarshalBinary(s); err != nil {
			return nil, errors.Wrap(err, "unmarshalling bls signature")
		}
		acc = acc.Add(acc, p)
	}

	return acc.MarshalBinary()
}

// AggregateBLSPublicKeys sums BLS public keys as points on G2. The
// aggregate key verifies an aggregate signature produced over a single
// shared message by several signers.
func AggregateBLSPublicKeys(pks []*Bls12381PublicKey) (*Bls12381PublicKey, error) {
	if len(pks) == 0 {
		return nil, errors.New("aggregating zero public keys")
	}

	acc := pairing.G2().Point().Null().Add(pairing.G2().Point().Null(), pks[0].Point)
	for _, pk := range pks[1:] {
		acc = acc.Add(acc, pk.Point)
	}

	return &Bls12381PublicKey{acc}, nil
}
