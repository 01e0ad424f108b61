// Package signercore composes the key manager, policy classifier, BLS
// primitives and watermark store into the signing state machine of
// spec.md §4.6. It is the only place request handling touches secret
// key material.
package signercore

import (
	"fmt"
	"log/slog"

	"github.com/tez-capital/tezsign-core/internal/bls"
	"github.com/tez-capital/tezsign-core/internal/health"
	"github.com/tez-capital/tezsign-core/internal/keymanager"
	"github.com/tez-capital/tezsign-core/internal/policy"
	"github.com/tez-capital/tezsign-core/internal/signererr"
	"github.com/tez-capital/tezsign-core/internal/watermark"
)

// Core wires the four collaborating packages together. It holds no
// state of its own beyond references to theirs.
type Core struct {
	Keys      *keymanager.Manager
	Watermark *watermark.Store
	Allowed   map[byte]bool // nil uses policy.AllowedMagicBytes
	Logger    *slog.Logger
	Health    *health.Monitor // optional; nil disables activity recording
}

func New(keys *keymanager.Manager, wm *watermark.Store, allowed map[byte]bool, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{Keys: keys, Watermark: wm, Allowed: allowed, Logger: logger}
}

func toWatermarkClass(c policy.Class) watermark.Class {
	switch c {
	case policy.ClassBlock:
		return watermark.ClassBlock
	case policy.ClassPreattestation:
		return watermark.ClassPreattestation
	default:
		return watermark.ClassAttestation
	}
}

// Sign resolves the key, classifies the payload, computes the signature,
// then checks and persists the watermark in a single CheckAndCommit call
// before returning. The watermark is updated before the signature is handed back,
// never after (spec.md §9's write-before-respond requirement).
func (c *Core) Sign(pkh [20]byte, payload []byte) ([]byte, error) {
	if c.Health != nil {
		c.Health.RecordActivity()
	}

	ref, ok := c.Keys.Resolve(pkh)
	if !ok {
		return nil, signererr.ErrUnknownKey
	}

	res, err := policy.Classify(payload, c.Allowed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signererr.ErrMalformedPayload, err)
	}
	if res.Class == policy.ClassRejected {
		return nil, &signererr.Rejected{MagicByte: res.MagicByte}
	}

	class := toWatermarkClass(res.Class)

	// The signature is computed unconditionally before the check so the
	// critical section (check, persist) happens once (twice only on the
	// large-gap path below) and
	// returns the real signature on OK, the cached one on Replay. A
	// signature computed ahead of a Violation outcome is simply
	// discarded; nothing secret leaves this function on that path.
	sig := bls.Sign(ref.SecretKey, payload)

	commit, err := c.Watermark.CheckAndCommit(pkh, class, res.Level, res.Round, res.BlockHash, sig, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signererr.ErrPersistence, err)
	}

	if commit.Outcome == watermark.OutcomeLargeGap {
		// Advisory only (spec.md §4.4): log it and force the commit
		// through rather than blocking the sign.
		c.Logger.Warn("watermark large gap",
			slog.String("class", class.String()),
			slog.Uint64("last_level", uint64(commit.Last.Level)),
			slog.Uint64("requested_level", uint64(res.Level)))
		commit, err = c.Watermark.CheckAndCommit(pkh, class, res.Level, res.Round, res.BlockHash, sig, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", signererr.ErrPersistence, err)
		}
	}

	switch commit.Outcome {
	case watermark.OutcomeOK:
		return sig, nil
	case watermark.OutcomeReplay:
		return commit.ReplaySignature, nil
	default:
		return nil, &signererr.WatermarkViolation{
			Class:     class.String(),
			Last:      signererr.LevelRound{Level: commit.Last.Level, Round: commit.Last.Round},
			Requested: signererr.LevelRound{Level: res.Level, Round: res.Round},
		}
	}
}

// PublicKey returns the compressed public key for pkh.
func (c *Core) PublicKey(pkh [20]byte) ([]byte, error) {
	pk, ok := c.Keys.PublicKey(pkh)
	if !ok {
		return nil, signererr.ErrUnknownKey
	}
	return pk, nil
}

// KnownKeys lists every loaded PKH.
func (c *Core) KnownKeys() [][20]byte {
	return c.Keys.PKHs()
}

// DeterministicNonce never touches the watermark (spec.md §4.6).
func (c *Core) DeterministicNonce(pkh [20]byte, data []byte) ([]byte, error) {
	ref, ok := c.Keys.Resolve(pkh)
	if !ok {
		return nil, signererr.ErrUnknownKey
	}
	return bls.DeterministicNonce(ref.SecretKey, data), nil
}

// DeterministicNonceHash never touches the watermark (spec.md §4.6).
func (c *Core) DeterministicNonceHash(pkh [20]byte, data []byte) ([]byte, error) {
	ref, ok := c.Keys.Resolve(pkh)
	if !ok {
		return nil, signererr.ErrUnknownKey
	}
	h, err := bls.DeterministicNonceHash(ref.SecretKey, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signererr.ErrCryptoFailure, err)
	}
	return h, nil
}

// SupportsDeterministicNonces is constant true for this core (spec.md §4.6).
func (c *Core) SupportsDeterministicNonces() bool { return true }

// ProvePossession never touches the watermark (spec.md §4.6).
func (c *Core) ProvePossession(pkh [20]byte) ([]byte, error) {
	ref, ok := c.Keys.Resolve(pkh)
	if !ok {
		return nil, signererr.ErrUnknownKey
	}
	sig, err := bls.ProvePossession(ref.SecretKey, ref.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signererr.ErrCryptoFailure, err)
	}
	return sig, nil
}
