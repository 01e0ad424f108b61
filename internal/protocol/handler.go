package protocol

import (
	"fmt"

	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/signererr"
	"github.com/tez-capital/tezsign-core/internal/signercore"
)

// Handler decodes one request frame, dispatches it to core, and encodes
// the response frame's body (everything after the 2-byte length and
// the result tag, which Server writes separately).
type Handler struct {
	Core *signercore.Core
}

// Handle returns the Ok-body bytes on success, or an error the caller
// encodes as the Err frame (spec.md §6/§7).
func (h *Handler) Handle(tag RequestTag, body []byte) ([]byte, error) {
	r := encoding.NewReader(body)

	switch tag {
	case TagSign:
		return h.handleSign(r)
	case TagPublicKey:
		return h.handlePublicKey(r)
	case TagAuthorizedKeys:
		return h.handleAuthorizedKeys()
	case TagDeterministicNonce:
		return h.handleDeterministicNonce(r)
	case TagDeterministicNonceHash:
		return h.handleDeterministicNonceHash(r)
	case TagSupportsDeterministicNonces:
		return h.handleSupportsDeterministicNonces(r)
	case TagKnownKeys:
		return h.handleKnownKeys()
	case TagBlsProveRequest:
		return h.handleBlsProveRequest(r)
	default:
		return nil, fmt.Errorf("%w: unknown request tag 0x%02x", signererr.ErrProtocol, tag)
	}
}

func (h *Handler) handleSign(r *encoding.Reader) ([]byte, error) {
	pkh, err := decodePKH(r)
	if err != nil {
		return nil, err
	}
	data, err := r.LengthPrefixedBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: sign data: %v", signererr.ErrProtocol, err)
	}
	// The trailing auth signature is accepted on the wire (spec.md §6,
	// §8) but this core has no transport-level authentication to check
	// it against (spec.md §1 Non-goals) — it is decoded so framing
	// stays correct and otherwise ignored.
	if _, _, err := r.OptionalTrailingSignature(); err != nil {
		return nil, fmt.Errorf("%w: %v", signererr.ErrProtocol, err)
	}

	sig, err := h.Core.Sign(pkh, data)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (h *Handler) handlePublicKey(r *encoding.Reader) ([]byte, error) {
	pkh, err := decodePKH(r)
	if err != nil {
		return nil, err
	}
	return h.Core.PublicKey(pkh)
}

// handleAuthorizedKeys always answers "no authentication required"
// (0x00): spec.md §1 Non-goals exclude authenticated/encrypted
// transport, so there is no authorized-key list to enforce.
func (h *Handler) handleAuthorizedKeys() ([]byte, error) {
	return []byte{0x00}, nil
}

func (h *Handler) handleDeterministicNonce(r *encoding.Reader) ([]byte, error) {
	pkh, err := decodePKH(r)
	if err != nil {
		return nil, err
	}
	data, err := r.LengthPrefixedBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: nonce data: %v", signererr.ErrProtocol, err)
	}
	nonce, err := h.Core.DeterministicNonce(pkh, data)
	if err != nil {
		return nil, err
	}
	return encoding.NewWriter().LengthPrefixedBytes(nonce).Bytes(), nil
}

func (h *Handler) handleDeterministicNonceHash(r *encoding.Reader) ([]byte, error) {
	pkh, err := decodePKH(r)
	if err != nil {
		return nil, err
	}
	data, err := r.LengthPrefixedBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: nonce hash data: %v", signererr.ErrProtocol, err)
	}
	h2, err := h.Core.DeterministicNonceHash(pkh, data)
	if err != nil {
		return nil, err
	}
	return encoding.NewWriter().LengthPrefixedBytes(h2).Bytes(), nil
}

func (h *Handler) handleSupportsDeterministicNonces(r *encoding.Reader) ([]byte, error) {
	if _, err := decodePKH(r); err != nil {
		return nil, err
	}
	if h.Core.SupportsDeterministicNonces() {
		return []byte{0xFF}, nil
	}
	return []byte{0x00}, nil
}

func (h *Handler) handleKnownKeys() ([]byte, error) {
	pkhs := h.Core.KnownKeys()
	w := encoding.NewWriter().Uint32(uint32(len(pkhs)))
	for _, pkh := range pkhs {
		encodePKH(w, pkh)
	}
	return w.Bytes(), nil
}

func (h *Handler) handleBlsProveRequest(r *encoding.Reader) ([]byte, error) {
	pkh, err := decodePKH(r)
	if err != nil {
		return nil, err
	}
	return h.Core.ProvePossession(pkh)
}
