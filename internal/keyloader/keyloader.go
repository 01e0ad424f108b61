// Package keyloader defines the contract through which already-decrypted
// key material reaches this core. The PIN entry, KDF, and at-rest
// cipher that produce that material are explicitly out of scope
// (spec.md §1); this package is only the seam the out-of-scope loader
// plugs into.
package keyloader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tez-capital/tezsign-core/internal/bls"
	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/keymanager"
)

// Source supplies decrypted key material at startup. A production
// deployment's PIN/KDF/decryption flow implements this; Static below is
// a minimal file-based implementation usable in development and tests.
type Source interface {
	Load() ([]keymanager.KeyRef, error)
}

// entry is the on-disk shape a Static source reads: an alias and a
// BLsk-encoded secret key. It is deliberately the simplest possible
// format — production loaders exchange this file for a decrypted
// in-memory feed and never touch disk.
type entry struct {
	Alias     string `json:"alias"`
	SecretKey string `json:"secret_key"` // BLsk-prefixed Base58Check
}

// Static loads key tuples from a plaintext JSON file. It exists for
// local development and integration tests, never for a deployment
// where at-rest encryption matters — that responsibility lives
// entirely outside this core.
type Static struct {
	Path string
}

func (s Static) Load() ([]keymanager.KeyRef, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("keyloader: read %s: %w", s.Path, err)
	}

	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("keyloader: parse %s: %w", s.Path, err)
	}

	refs := make([]keymanager.KeyRef, 0, len(entries))
	for _, e := range entries {
		payload, err := encoding.Decode(encoding.PrefixSecretKey, e.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("keyloader: decode secret key for %q: %w", e.Alias, err)
		}

		sk, err := bls.FromLittleEndian(payload)
		if err != nil {
			return nil, fmt.Errorf("keyloader: invalid secret key for %q: %w", e.Alias, err)
		}

		pk := bls.DerivePublic(sk)
		pkhBytes, err := bls.PKH(pk)
		if err != nil {
			return nil, fmt.Errorf("keyloader: derive pkh for %q: %w", e.Alias, err)
		}
		var pkh [20]byte
		copy(pkh[:], pkhBytes)

		refs = append(refs, keymanager.KeyRef{
			Alias:     e.Alias,
			PKH:       pkh,
			PublicKey: pk,
			SecretKey: sk,
		})
	}

	return refs, nil
}
