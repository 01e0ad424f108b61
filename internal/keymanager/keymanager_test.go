package keymanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tez-capital/tezsign-core/internal/bls"
)

func mustTuple(t *testing.T, alias string, seed byte) KeyRef {
	t.Helper()
	sk, err := bls.GenerateRandom()
	require.NoError(t, err)
	pk := bls.DerivePublic(sk)
	pkhBytes, err := bls.PKH(pk)
	require.NoError(t, err)
	var pkh [20]byte
	copy(pkh[:], pkhBytes)
	pkh[0] = seed // force distinct pkhs across calls in the same test
	return KeyRef{Alias: alias, PKH: pkh, PublicKey: pk, SecretKey: sk}
}

func TestResolveAndPKHs(t *testing.T) {
	a := mustTuple(t, "baker-a", 1)
	b := mustTuple(t, "baker-b", 2)

	m, err := New([]KeyRef{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	ref, ok := m.Resolve(a.PKH)
	require.True(t, ok)
	require.Equal(t, "baker-a", ref.Alias)

	_, ok = m.Resolve([20]byte{0xFF})
	require.False(t, ok)

	pkhs := m.PKHs()
	require.Len(t, pkhs, 2)
	require.Contains(t, pkhs, a.PKH)
	require.Contains(t, pkhs, b.PKH)
}

func TestPublicKeyLookup(t *testing.T) {
	a := mustTuple(t, "baker-a", 1)
	m, err := New([]KeyRef{a})
	require.NoError(t, err)

	pk, ok := m.PublicKey(a.PKH)
	require.True(t, ok)
	require.Equal(t, a.PublicKey, pk)

	_, ok = m.PublicKey([20]byte{0xEE})
	require.False(t, ok)
}

func TestNewRejectsDuplicatePKH(t *testing.T) {
	a := mustTuple(t, "baker-a", 9)
	dup := a
	dup.Alias = "baker-a-dup"

	_, err := New([]KeyRef{a, dup})
	require.Error(t, err)
}
