// Package bls implements the BLS12-381 MinPk ciphersuite operations
// this signer needs: key generation, scalar reduction, public-key
// derivation, the 20-byte public-key hash, signing, verification and
// proof-of-possession, all built on blst (the teacher's BLS binding).
package bls

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/blake2b"

	blst "github.com/supranational/blst/bindings/go"
)

// Ciphersuite domain-separation tags, fixed by spec.md §6.
var (
	dstSign = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")
	dstPoP  = []byte("BLS_POP_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")
)

type PublicKey = blst.P1Affine
type Signature = blst.P2Affine
type SecretKey = blst.SecretKey

var (
	ErrPublicKeyLength = errors.New("bls: public key must be 48-byte compressed G1")
	ErrSignatureLength = errors.New("bls: signature must be 96-byte compressed G2")
	ErrBadEncoding     = errors.New("bls: bad compressed point encoding")
)

const (
	PublicKeyLen = blst.BLST_P1_COMPRESS_BYTES // 48
	SignatureLen = blst.BLST_P2_COMPRESS_BYTES // 96
	PKHLen       = 20
)

// GenerateRandom produces a fresh secret key from the OS CSPRNG. blst's
// KeyGen reduces the IKM-derived scalar modulo the curve order and
// never returns zero, satisfying spec.md §4.2's generate() contract.
func GenerateRandom() (*SecretKey, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, err
	}
	sk := blst.KeyGen(ikm[:])
	if sk == nil {
		return nil, errors.New("bls: key generation failed")
	}
	return sk, nil
}

// DerivePublic computes the compressed G1 public key pk = sk*G1.
func DerivePublic(sk *SecretKey) []byte {
	pk := new(PublicKey).From(sk)
	return pk.Compress()
}

// PKH computes the 20-byte blake2b digest of a compressed public key.
func PKH(pubkeyBytes []byte) ([]byte, error) {
	if len(pubkeyBytes) != PublicKeyLen {
		return nil, ErrPublicKeyLength
	}
	h, err := blake2b.New(PKHLen, nil)
	if err != nil {
		return nil, err
	}
	h.Write(pubkeyBytes)
	return h.Sum(nil), nil
}

// Sign produces a 96-byte compressed G2 signature under the MinPk
// ciphersuite's signing DST.
func Sign(sk *SecretKey, msg []byte) []byte {
	sig := new(Signature).Sign(sk, msg, dstSign)
	return sig.Compress()
}

// Verify checks a single (pubkey, message, signature) triple.
func Verify(pubkeyBytes, msg, sigBytes []byte) (bool, error) {
	if len(pubkeyBytes) != PublicKeyLen {
		return false, ErrPublicKeyLength
	}
	if len(sigBytes) != SignatureLen {
		return false, ErrSignatureLength
	}
	var pk PublicKey
	if pk.Uncompress(pubkeyBytes) == nil {
		return false, ErrBadEncoding
	}
	var sig Signature
	if sig.Uncompress(sigBytes) == nil {
		return false, ErrBadEncoding
	}
	return sig.Verify(true, &pk, true, msg, dstSign), nil
}

// ProvePossession signs the public key's own compressed bytes under the
// PoP domain-separation tag, distinguishing it from a regular signature
// over the same bytes.
func ProvePossession(sk *SecretKey, pubkeyBytes []byte) ([]byte, error) {
	if len(pubkeyBytes) != PublicKeyLen {
		return nil, ErrPublicKeyLength
	}
	sig := new(Signature).Sign(sk, pubkeyBytes, dstPoP)
	return sig.Compress(), nil
}

// VerifyPossession checks a proof-of-possession signature.
func VerifyPossession(pubkeyBytes, popSigBytes []byte) (bool, error) {
	if len(pubkeyBytes) != PublicKeyLen {
		return false, ErrPublicKeyLength
	}
	if len(popSigBytes) != SignatureLen {
		return false, ErrSignatureLength
	}
	var pk PublicKey
	if pk.Uncompress(pubkeyBytes) == nil {
		return false, ErrBadEncoding
	}
	var sig Signature
	if sig.Uncompress(popSigBytes) == nil {
		return false, ErrBadEncoding
	}
	return sig.Verify(true, &pk, true, pubkeyBytes, dstPoP), nil
}

// DeterministicNonce derives a 32-byte RFC-6979-style nonce from sk and
// msg: HMAC-SHA-256 of msg keyed by sk's big-endian scalar bytes.
func DeterministicNonce(sk *SecretKey, msg []byte) []byte {
	keyBE := secretKeyBigEndian(sk)
	mac := hmac.New(sha256.New, keyBE)
	mac.Write(msg)
	return mac.Sum(nil)
}

// DeterministicNonceHash is Blake2b-256 of DeterministicNonce(sk, msg).
func DeterministicNonceHash(sk *SecretKey, msg []byte) ([]byte, error) {
	nonce := DeterministicNonce(sk, msg)
	h := blake2b.Sum256(nonce)
	_ = nonce
	return h[:], nil
}

// secretKeyBigEndian converts blst's little-endian scalar
// representation to big-endian, matching the internal library
// convention spec.md §3/§9 calls out (source encoding is little-endian,
// internal representation is big-endian).
func secretKeyBigEndian(sk *SecretKey) []byte {
	le := sk.ToLEndian()
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return be
}

// FromLittleEndian builds a SecretKey from a 32-byte little-endian
// scalar, as produced by the BLsk Base58Check payload. A scalar at or
// above the curve order is reduced modulo the order before the key is
// constructed (spec.md §3's out-of-range acceptance invariant); blst's
// FromLEndian performs this reduction internally.
func FromLittleEndian(le []byte) (*SecretKey, error) {
	if len(le) != 32 {
		return nil, errors.New("bls: secret key payload must be 32 bytes")
	}
	var sk SecretKey
	if sk.FromLEndian(le) == nil {
		return nil, errors.New("bls: invalid scalar")
	}
	return &sk, nil
}

// ToLittleEndian returns sk's scalar in the source ecosystem's
// little-endian encoding, the inverse of FromLittleEndian.
func ToLittleEndian(sk *SecretKey) []byte {
	return sk.ToLEndian()
}

// Zeroize wipes sk's in-memory scalar. Callers must invoke this when a
// key tuple is dropped (spec.md §3/§4.2: secret-key buffers are wiped
// on drop).
func Zeroize(sk *SecretKey) {
	if sk != nil {
		sk.Zeroize()
	}
}
