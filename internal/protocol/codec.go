package protocol

import (
	"fmt"

	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/signererr"
)

// decodePKH reads a pkh_enc tagged union (spec.md §6). Only the BLS
// variant (outer tag 0x03) is servable; other recognized variants
// surface UnsupportedCurve rather than a framing error, matching the
// spec's distinction between "recognized but foreign" and "malformed".
func decodePKH(r *encoding.Reader) ([20]byte, error) {
	var pkh [20]byte

	outer, err := r.Uint8()
	if err != nil {
		return pkh, fmt.Errorf("%w: pkh outer tag: %v", signererr.ErrProtocol, err)
	}

	switch pkhOuterTag(outer) {
	case pkhOuterBLS:
		if _, err := r.Uint8(); err != nil { // inner_tag, read and not interpreted
			return pkh, fmt.Errorf("%w: pkh inner tag: %v", signererr.ErrProtocol, err)
		}
		body, err := r.FixedBytes(pkhLen)
		if err != nil {
			return pkh, fmt.Errorf("%w: pkh body: %v", signererr.ErrProtocol, err)
		}
		copy(pkh[:], body)
		version, err := r.Uint8()
		if err != nil {
			return pkh, fmt.Errorf("%w: pkh version: %v", signererr.ErrProtocol, err)
		}
		if version > 3 {
			return pkh, fmt.Errorf("%w: unrecognized pkh version %d", signererr.ErrProtocol, version)
		}
		return pkh, nil
	case pkhOuterEd25519, pkhOuterSecp256k1, pkhOuterP256:
		if _, err := r.FixedBytes(pkhLen); err != nil {
			return pkh, fmt.Errorf("%w: pkh body: %v", signererr.ErrProtocol, err)
		}
		return pkh, signererr.ErrUnsupportedCurve
	default:
		return pkh, fmt.Errorf("%w: unknown pkh outer tag 0x%02x", signererr.ErrProtocol, outer)
	}
}

// encodePKH writes a BLS pkh_enc union for responses that enumerate
// keys (KnownKeys). version 0 and inner_tag 0 are used
// since this core mints its own encodings rather than echoing a
// client-supplied version.
func encodePKH(w *encoding.Writer, pkh [20]byte) {
	w.Uint8(byte(pkhOuterBLS))
	w.Uint8(0) // inner_tag
	w.FixedBytes(pkh[:])
	w.Uint8(0) // version
}
