package encoding

import "testing"

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Uint8(0x11).Uint16(0xBEEF).Uint32(100).LengthPrefixedBytes([]byte("payload"))

	r := NewReader(w.Bytes())
	tag, err := r.Uint8()
	if err != nil || tag != 0x11 {
		t.Fatalf("Uint8: %v %x", err, tag)
	}
	u16, err := r.Uint16()
	if err != nil || u16 != 0xBEEF {
		t.Fatalf("Uint16: %v %x", err, u16)
	}
	u32, err := r.Uint32()
	if err != nil || u32 != 100 {
		t.Fatalf("Uint32: %v %d", err, u32)
	}
	data, err := r.LengthPrefixedBytes()
	if err != nil || string(data) != "payload" {
		t.Fatalf("LengthPrefixedBytes: %v %q", err, data)
	}
	if !r.AtEOF() {
		t.Fatalf("expected EOF after consuming all fields")
	}
}

func TestOptionalTrailingSignatureAbsentAtEOF(t *testing.T) {
	r := NewReader([]byte{})
	sig, present, err := r.OptionalTrailingSignature()
	if err != nil || present || sig != nil {
		t.Fatalf("expected absent signature, got sig=%v present=%v err=%v", sig, present, err)
	}
}

func TestOptionalTrailingSignaturePresent(t *testing.T) {
	r := NewReader(make([]byte, 96))
	sig, present, err := r.OptionalTrailingSignature()
	if err != nil || !present || len(sig) != 96 {
		t.Fatalf("expected present 96-byte signature, got sig=%v present=%v err=%v", sig, present, err)
	}
}

func TestOptionalTrailingSignatureTruncatedIsError(t *testing.T) {
	for n := 1; n < 96; n++ {
		r := NewReader(make([]byte, n))
		if _, _, err := r.OptionalTrailingSignature(); err == nil {
			t.Fatalf("expected error for %d trailing bytes", n)
		}
	}
}
