package amt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didem-chain/blockcore/pkg/amt"
	"github.com/didem-chain/blockcore/pkg/store"
)

func TestSetFlushGetRoundTrip(t *testing.T) {
	cas := store.NewMemStore()
	a := amt.New(cas)

	a.Set(0, []byte("zero"))
	a.Set(1, []byte("one"))
	a.Set(9, []byte("nine"))

	root, err := a.Flush()
	require.NoError(t, err)

	v0, err := amt.Get(cas, root, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("zero"), v0)

	v9, err := amt.Get(cas, root, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("nine"), v9)

	_, err = amt.Get(cas, root, 5)
	assert.Error(t, err)
}

func TestFlushIsDeterministic(t *testing.T) {
	casA := store.NewMemStore()
	a := amt.New(casA)
	a.Set(2, []byte("x"))
	a.Set(0, []byte("y"))
	rootA, err := a.Flush()
	require.NoError(t, err)

	casB := store.NewMemStore()
	b := amt.New(casB)
	b.Set(2, []byte("x"))
	b.Set(0, []byte("y"))
	rootB, err := b.Flush()
	require.NoError(t, err)

	assert.Equal(t, rootA, rootB)
}

func TestEmptyAMTFlushes(t *testing.T) {
	cas := store.NewMemStore()
	a := amt.New(cas)

	root, err := a.Flush()
	require.NoError(t, err)
	assert.True(t, root.Defined())
}

func TestDenseIndicesAcrossMultipleLevels(t *testing.T) {
	cas := store.NewMemStore()
	a := amt.New(cas)
	for i := uint64(0); i < 100; i++ {
		a.Set(i, []byte{byte(i)})
	}
	root, err := a.Flush()
	require.NoError(t, err)

	for i := uint64(0); i < 100; i++ {
		v, err := amt.Get(cas, root, i)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, v)
	}
}
