package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didem-chain/blockcore/pkg/chain"
)

func msgWithPremium(p int64) chain.SignedMessage {
	return chain.SignedMessage{
		Message:   chain.UnsignedMessage{GasPremium: chain.NewBigInt(p)},
		Signature: chain.BLSSignature([]byte("sig")),
	}
}

func TestTopScoredOrdersByGasPremiumDescending(t *testing.T) {
	p := New()
	require.NoError(t, p.Add(msgWithPremium(1)))
	require.NoError(t, p.Add(msgWithPremium(5)))
	require.NoError(t, p.Add(msgWithPremium(3)))

	top := p.TopScored(10)
	assert.Len(t, top, 3)
	assert.Equal(t, int64(5), top[0].Message.GasPremium.Int.Int64())
	assert.Equal(t, int64(3), top[1].Message.GasPremium.Int.Int64())
	assert.Equal(t, int64(1), top[2].Message.GasPremium.Int.Int64())
}

func TestTopScoredCapsAtN(t *testing.T) {
	p := New()
	require.NoError(t, p.Add(msgWithPremium(1)))
	require.NoError(t, p.Add(msgWithPremium(2)))

	assert.Len(t, p.TopScored(1), 1)
	assert.Len(t, p.TopScored(0), 0)
}

func TestTopScoredIsNonDestructive(t *testing.T) {
	p := New()
	require.NoError(t, p.Add(msgWithPremium(1)))

	first := p.TopScored(1)
	second := p.TopScored(1)
	assert.Equal(t, first, second)
}

func TestAddRejectsDuplicates(t *testing.T) {
	p := New()
	msg := msgWithPremium(7)

	require.NoError(t, p.Add(msg))
	assert.ErrorIs(t, p.Add(msg), ErrAlreadyKnown)
	assert.Len(t, p.TopScored(10), 1)
}

func TestIngestEnvelopeRoundTrip(t *testing.T) {
	msg := msgWithPremium(9)
	env, err := NewEnvelope("peer-1", 1650000000, &msg)
	require.NoError(t, err)

	raw, err := env.Marshal()
	require.NoError(t, err)

	p := New()
	require.NoError(t, p.Ingest(raw))

	top := p.TopScored(1)
	require.Len(t, top, 1)
	assert.Equal(t, int64(9), top[0].Message.GasPremium.Int.Int64())
}

func TestIngestRejectsGarbage(t *testing.T) {
	p := New()
	assert.Error(t, p.Ingest([]byte("not msgpack")))
}
