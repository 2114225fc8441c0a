package cryptography

import "github.com/didem-chain/blockcore/pkg/chain"

// Provider is the crypto capability the block producer consumes.
// Aggregate accepts an empty input and yields an empty aggregate.
type Provider interface {
	Aggregate(sigs [][]byte) ([]byte, error)
	VerifyBLS(pub, sig, msg []byte) (bool, error)
	VerifySecp256k1(pub, sig, msg []byte) (bool, error)
}

var _ Provider = (*KyberProvider)(nil)

// KyberProvider is the reference Provider: BLS over
// github.com/drand/kyber-bls12381, secp256k1 over github.com/ethereum/go-ethereum.
type KyberProvider struct{}

func NewKyberProvider() *KyberProvider {
	return &KyberProvider{}
}

func (KyberProvider) Aggregate(sigs [][]byte) ([]byte, error) {
	return AggregateBLSSignatures(sigs)
}

func (KyberProvider) VerifyBLS(pub, sig, msg []byte) (bool, error) {
	pk, err := UnmarshalBls12381PublicKey(pub)
	if err != nil {
		return false, err
	}
	return pk.Verify(sig, msg)
}

func (KyberProvider) VerifySecp256k1(pub, sig, msg []byte) (bool, error) {
	pk, err := NewSecp256k1PublicKey(pub)
	if err != nil {
		return false, err
	}
	return pk.Verify(sig, msg)
}

// AggregateSignedMessages extracts the signature bytes of every
// BLS-kind SignedMessage in order and aggregates them.
func AggregateSignedMessages(p Provider, msgs []chain.SignedMessage) ([]byte, error) {
	sigs := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		if m.Signature.Kind != chain.SigKindBLS {
			continue
		}
		sigs = append(sigs, m.Signature.Data)
	}
	return p.Aggregate(sigs)
}
