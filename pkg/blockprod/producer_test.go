package blockprod

import (
	"context"
	"testing"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didem-chain/blockcore/pkg/amt"
	"github.com/didem-chain/blockcore/pkg/chain"
	chainclock "github.com/didem-chain/blockcore/pkg/clock"
	"github.com/didem-chain/blockcore/pkg/store"
)

type fakeInterpreter struct {
	stateRoot, receiptsRoot cid.Cid
	err                     error
}

func (f *fakeInterpreter) Interpret(cas store.Store, ts *chain.Tipset, indices interface{}) (cid.Cid, cid.Cid, error) {
	return f.stateRoot, f.receiptsRoot, f.err
}

type fakeWeight struct{ w chain.BigInt }

func (f fakeWeight) Weight(ts *chain.Tipset) chain.BigInt { return f.w }

type fakeMempool struct{ msgs []chain.SignedMessage }

func (f fakeMempool) TopScored(n int) []chain.SignedMessage {
	if n > len(f.msgs) {
		n = len(f.msgs)
	}
	return f.msgs[:n]
}

type fakeCrypto struct{}

func (fakeCrypto) Aggregate(sigs [][]byte) ([]byte, error) {
	out := []byte{}
	for _, s := range sigs {
		out = append(out, s...)
	}
	return out, nil
}
func (fakeCrypto) VerifyBLS(pub, sig, msg []byte) (bool, error)       { return true, nil }
func (fakeCrypto) VerifySecp256k1(pub, sig, msg []byte) (bool, error) { return true, nil }

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func mustAddr(t *testing.T, id uint64) address.Address {
	a, err := address.NewIDAddress(id)
	require.NoError(t, err)
	return a
}

func signedMsg(t *testing.T, kind chain.SigKind, from, to address.Address, premium int64) chain.SignedMessage {
	return chain.SignedMessage{
		Message: chain.UnsignedMessage{
			From:       chain.WrapAddr(from),
			To:         chain.WrapAddr(to),
			Value:      chain.NewBigInt(0),
			GasPremium: chain.NewBigInt(premium),
		},
		Signature: chain.Signature{Kind: kind, Data: []byte{byte(premium)}},
	}
}

func newHarness(t *testing.T, msgs []chain.SignedMessage, genesis time.Time, now time.Time) (*Producer, store.Store, cid.Cid) {
	cas := store.NewMemStore()

	parentTs := &chain.Tipset{Height: 41, ParentWeight: chain.NewBigInt(10)}
	tsCid, err := store.PutCBOR(cas, parentTs)
	require.NoError(t, err)

	p, err := New(
		WithCAS(cas),
		WithInterpreter(&fakeInterpreter{stateRoot: tsCid, receiptsRoot: tsCid}),
		WithWeightCalculator(fakeWeight{w: chain.NewBigInt(11)}),
		WithMempool(fakeMempool{msgs: msgs}),
		WithCryptoProvider(fakeCrypto{}),
		WithClock(fakeClock{t: now}, chainclock.NewEpochClock(genesis, 25*time.Second)),
	)
	require.NoError(t, err)
	return p, cas, tsCid
}

func TestGenerateMixedMessages(t *testing.T) {
	a, b, c := mustAddr(t, 100), mustAddr(t, 101), mustAddr(t, 102)
	m0 := signedMsg(t, chain.SigKindBLS, a, b, 1)
	m1 := signedMsg(t, chain.SigKindSecp256k1, a, c, 2)
	m2 := signedMsg(t, chain.SigKindBLS, a, b, 3)

	genesis := time.Unix(0, 0).UTC()
	now := genesis.Add(1000 * time.Second)
	p, cas, tsCid := newHarness(t, []chain.SignedMessage{m0, m1, m2}, genesis, now)

	block, err := p.Generate(context.Background(), a, tsCid, []byte("proof"), []byte("ticket"), nil)
	require.NoError(t, err)

	assert.Equal(t, chain.Epoch(40), block.Header.Height)
	assert.Equal(t, []byte{1, 3}, block.Header.BLSAggregate)

	var meta chain.MsgMeta
	require.NoError(t, store.GetCBOR(cas, block.Header.Messages.Cid, &meta))

	blsEntries, err := amt.All(cas, meta.BLSMessages.Cid)
	require.NoError(t, err)
	assert.Len(t, blsEntries, 2)
	assert.Contains(t, blsEntries, uint64(0))
	assert.Contains(t, blsEntries, uint64(2))

	secpEntries, err := amt.All(cas, meta.SECPMessages.Cid)
	require.NoError(t, err)
	assert.Len(t, secpEntries, 1)
	assert.Contains(t, secpEntries, uint64(1))
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, b := mustAddr(t, 200), mustAddr(t, 201)
	msgs := []chain.SignedMessage{signedMsg(t, chain.SigKindBLS, a, b, 7)}

	genesis := time.Unix(0, 0).UTC()
	now := genesis.Add(500 * time.Second)

	p1, _, ts1 := newHarness(t, msgs, genesis, now)
	b1, err := p1.Generate(context.Background(), a, ts1, []byte("e"), []byte("t"), nil)
	require.NoError(t, err)

	p2, _, ts2 := newHarness(t, msgs, genesis, now)
	b2, err := p2.Generate(context.Background(), a, ts2, []byte("e"), []byte("t"), nil)
	require.NoError(t, err)

	c1, err := b1.Cid()
	require.NoError(t, err)
	c2, err := b2.Cid()
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestGenerateParentTipsetNotFound(t *testing.T) {
	p, _, _ := newHarness(t, nil, time.Now(), time.Now())
	_, err := p.Generate(context.Background(), mustAddr(t, 1), cid.Undef, nil, nil, nil)
	assert.ErrorIs(t, err, ErrParentTipsetNotFound)
}

func TestGenerateRespectsCancellation(t *testing.T) {
	p, _, tsCid := newHarness(t, nil, time.Now(), time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, mustAddr(t, 1), tsCid, nil, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateEmptyMempoolYieldsEmptyAggregate(t *testing.T) {
	p, _, tsCid := newHarness(t, nil, time.Now(), time.Now())
	block, err := p.Generate(context.Background(), mustAddr(t, 1), tsCid, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, block.Header.BLSAggregate)
}
