// Package encoding implements the Base58Check text format used for
// public-key hashes, public keys, secret keys and signatures, plus the
// wire protocol's big-endian integer and length-prefixed byte codecs.
//
// The typed-prefix registry follows the pattern used by Tezos-ecosystem
// Go libraries (see anchorageoss/tezosprotocol's base58check.go): each
// prefix is registered once with its expected payload length, and
// encode/decode validate against it instead of trusting caller input.
package encoding

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	ErrMalformedBase58  = errors.New("malformed base58")
	ErrChecksumMismatch = errors.New("base58check checksum mismatch")
	ErrPrefixMismatch   = errors.New("base58check prefix mismatch")
	ErrPayloadLength    = errors.New("base58check payload length mismatch")
)

// Prefix identifies one of the typed Base58Check encodings this signer
// understands.
type Prefix int

const (
	PrefixPKH Prefix = iota
	PrefixPublicKey
	PrefixSecretKey
	PrefixSignature
)

type prefixInfo struct {
	bytes     []byte
	payloadLn int
	name      string
}

var prefixInfos = map[Prefix]prefixInfo{
	PrefixPKH:       {bytes: []byte{6, 161, 166}, payloadLn: 20, name: "tz4"},
	PrefixPublicKey: {bytes: []byte{6, 149, 135, 204}, payloadLn: 48, name: "BLpk"},
	PrefixSecretKey: {bytes: []byte{3, 150, 192, 40}, payloadLn: 32, name: "BLsk"},
	PrefixSignature: {bytes: []byte{40, 171, 64, 207}, payloadLn: 96, name: "BLsig"},
}

func checksum(data []byte) [4]byte {
	h1 := sha256.Sum256(data)
	h2 := sha256.Sum256(h1[:])
	var out [4]byte
	copy(out[:], h2[:4])
	return out
}

// Encode produces the Base58Check text form of payload under prefix.
// payload must already be exactly the prefix's expected length.
func Encode(p Prefix, payload []byte) (string, error) {
	info, ok := prefixInfos[p]
	if !ok {
		return "", fmt.Errorf("encoding: unknown prefix %d", p)
	}
	if len(payload) != info.payloadLn {
		return "", fmt.Errorf("%w: %s expects %d bytes, got %d", ErrPayloadLength, info.name, info.payloadLn, len(payload))
	}

	buf := make([]byte, len(info.bytes)+len(payload))
	n := copy(buf, info.bytes)
	copy(buf[n:], payload)

	sum := checksum(buf)
	buf = append(buf, sum[:]...)
	return base58.Encode(buf), nil
}

// Decode parses s as a Base58Check string tagged with prefix p and
// returns the raw payload bytes (prefix and checksum stripped).
func Decode(p Prefix, s string) ([]byte, error) {
	info, ok := prefixInfos[p]
	if !ok {
		return nil, fmt.Errorf("encoding: unknown prefix %d", p)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBase58, err)
	}

	if len(raw) < 4 {
		return nil, ErrChecksumMismatch
	}
	body, tail := raw[:len(raw)-4], raw[len(raw)-4:]
	want := checksum(body)
	if !bytes.Equal(want[:], tail) {
		return nil, ErrChecksumMismatch
	}

	if !bytes.HasPrefix(body, info.bytes) {
		return nil, ErrPrefixMismatch
	}
	payload := body[len(info.bytes):]
	if len(payload) != info.payloadLn {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrPayloadLength, info.name, info.payloadLn, len(payload))
	}

	return payload, nil
}

// PrefixName returns the registered human-readable name for p (e.g.
// "tz4"), used by callers that need to report a prefix in error
// messages or logs.
func PrefixName(p Prefix) string {
	return prefixInfos[p].name
}
