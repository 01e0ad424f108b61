// Package keymanager holds the PKH-to-key-tuple mapping in memory. It is
// populated once at startup from an external loader (spec.md §1's
// "already-decrypted key material" boundary, implemented against the
// Source contract in internal/keyloader) and is read-only for the rest
// of the process lifetime, per spec.md §4.5.
package keymanager

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/tez-capital/tezsign-core/internal/bls"
)

// KeyRef is the immutable key tuple addressed by PKH over the wire and
// by alias in local management (spec.md §3).
type KeyRef struct {
	Alias     string
	PKH       [20]byte
	PublicKey []byte // 48-byte compressed G1 point
	SecretKey *bls.SecretKey
}

// Manager is the read-only, concurrency-safe key set. Its zero value is
// not usable; build one with New.
type Manager struct {
	mu   sync.RWMutex
	keys map[[20]byte]KeyRef
}

// New builds a Manager from a fully-resolved key tuple list. PKH
// uniqueness is an invariant of the key set (spec.md §3); a duplicate
// PKH is a loader bug and is rejected rather than silently shadowed.
func New(tuples []KeyRef) (*Manager, error) {
	m := &Manager{keys: make(map[[20]byte]KeyRef, len(tuples))}
	for _, t := range tuples {
		if _, exists := m.keys[t.PKH]; exists {
			return nil, fmt.Errorf("keymanager: duplicate pkh for alias %q", t.Alias)
		}
		m.keys[t.PKH] = t
	}
	return m, nil
}

// Resolve returns the key tuple for pkh, if loaded.
func (m *Manager) Resolve(pkh [20]byte) (KeyRef, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.keys[pkh]
	return ref, ok
}

// PKHs returns every loaded PKH, for the KnownKeys request (order is
// insertion-independent per spec.md §8 scenario 6).
func (m *Manager) PKHs() [][20]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.keys)
}

// PublicKey returns the compressed public key bytes for pkh.
func (m *Manager) PublicKey(pkh [20]byte) ([]byte, bool) {
	ref, ok := m.Resolve(pkh)
	if !ok {
		return nil, false
	}
	return ref.PublicKey, true
}

// Len reports how many keys are loaded.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
