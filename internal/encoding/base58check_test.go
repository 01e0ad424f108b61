package encoding

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		p    Prefix
		n    int
	}{
		{"pkh", PrefixPKH, 20},
		{"pubkey", PrefixPublicKey, 48},
		{"seckey", PrefixSecretKey, 32},
		{"sig", PrefixSignature, 96},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := make([]byte, c.n)
			for i := range payload {
				payload[i] = byte(i)
			}

			s, err := Encode(c.p, payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			got, err := Decode(c.p, s)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("round trip mismatch: got %x want %x", got, payload)
			}
		})
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	payload := make([]byte, 20)
	s, err := Encode(PrefixPKH, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	corrupted := s[:len(s)-1] + "z"
	if corrupted == s {
		corrupted = s[:len(s)-1] + "a"
	}

	if _, err := Decode(PrefixPKH, corrupted); err == nil {
		t.Fatalf("expected Decode to fail on corrupted checksum")
	}
}

func TestDecodeRejectsWrongPrefix(t *testing.T) {
	payload := make([]byte, 48)
	s, err := Encode(PrefixPublicKey, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := Decode(PrefixSecretKey, s); err == nil {
		t.Fatalf("expected Decode to fail decoding a public key as a secret key")
	}
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	if _, err := Encode(PrefixPKH, make([]byte, 19)); err == nil {
		t.Fatalf("expected Encode to reject a short payload")
	}
}

func TestDecodeRejectsBadAlphabet(t *testing.T) {
	if _, err := Decode(PrefixPKH, "not-base58!!!"); err == nil {
		t.Fatalf("expected Decode to reject an invalid base58 alphabet")
	}
}
