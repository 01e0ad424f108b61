package protocol

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tez-capital/tezsign-core/internal/bls"
	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/keymanager"
	"github.com/tez-capital/tezsign-core/internal/policy"
	"github.com/tez-capital/tezsign-core/internal/signercore"
	"github.com/tez-capital/tezsign-core/internal/watermark"
)

func newTestHandler(t *testing.T) (*Handler, keymanager.KeyRef) {
	t.Helper()
	sk, err := bls.GenerateRandom()
	require.NoError(t, err)
	pk := bls.DerivePublic(sk)
	pkhBytes, err := bls.PKH(pk)
	require.NoError(t, err)
	var pkh [20]byte
	copy(pkh[:], pkhBytes)

	ref := keymanager.KeyRef{Alias: "baker", PKH: pkh, PublicKey: pk, SecretKey: sk}
	km, err := keymanager.New([]keymanager.KeyRef{ref})
	require.NoError(t, err)

	backend, err := watermark.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store, err := watermark.New(backend)
	require.NoError(t, err)

	core := signercore.New(km, store, nil, nil)
	return &Handler{Core: core}, ref
}

func buildPreattestationPayload(level, round uint32) []byte {
	buf := make([]byte, 1+4+32+1+4+4)
	buf[0] = policy.MagicPreattestation
	binary.BigEndian.PutUint32(buf[1+4+32+1:], level)
	binary.BigEndian.PutUint32(buf[1+4+32+1+4:], round)
	return buf
}

func encodeBLSPKH(pkh [20]byte) []byte {
	w := encoding.NewWriter()
	encodePKH(w, pkh)
	return w.Bytes()
}

func TestAuthorizedKeysScenarioAlwaysUnauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)
	body, err := h.Handle(TagAuthorizedKeys, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, body)
}

func TestSignAcceptsFirstPreattestationThenRejectsReplayLower(t *testing.T) {
	h, ref := newTestHandler(t)

	req := encoding.NewWriter()
	req.FixedBytes(encodeBLSPKH(ref.PKH))
	payload := buildPreattestationPayload(100, 0)
	req.LengthPrefixedBytes(payload)

	sig, err := h.Handle(TagSign, req.Bytes())
	require.NoError(t, err)
	require.Len(t, sig, bls.SignatureLen)

	req2 := encoding.NewWriter()
	req2.FixedBytes(encodeBLSPKH(ref.PKH))
	req2.LengthPrefixedBytes(buildPreattestationPayload(99, 0))

	_, err = h.Handle(TagSign, req2.Bytes())
	require.Error(t, err)
}

func TestSignRejectsUnknownPKH(t *testing.T) {
	h, _ := newTestHandler(t)
	var foreign [20]byte
	foreign[0] = 0xEE

	req := encoding.NewWriter()
	req.FixedBytes(encodeBLSPKH(foreign))
	req.LengthPrefixedBytes(buildPreattestationPayload(1, 0))

	_, err := h.Handle(TagSign, req.Bytes())
	require.ErrorContains(t, err, "unknown key")
}

func TestKnownKeysEnumeration(t *testing.T) {
	h, ref := newTestHandler(t)
	body, err := h.Handle(TagKnownKeys, nil)
	require.NoError(t, err)

	r := encoding.NewReader(body)
	count, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	var got [20]byte
	outer, err := r.Uint8()
	require.NoError(t, err)
	require.Equal(t, byte(pkhOuterBLS), outer)
	_, err = r.Uint8() // inner tag
	require.NoError(t, err)
	b, err := r.FixedBytes(pkhLen)
	require.NoError(t, err)
	copy(got[:], b)
	_, err = r.Uint8() // version
	require.NoError(t, err)

	require.Equal(t, ref.PKH, got)
}

func TestSupportsDeterministicNoncesIsConstantTrue(t *testing.T) {
	h, ref := newTestHandler(t)
	req := encoding.NewWriter()
	req.FixedBytes(encodeBLSPKH(ref.PKH))

	body, err := h.Handle(TagSupportsDeterministicNonces, req.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, body)
}

func TestPKHOuterTagNonBLSIsUnsupportedCurve(t *testing.T) {
	h, _ := newTestHandler(t)
	req := encoding.NewWriter()
	req.Uint8(0x00) // ed25519
	req.FixedBytes(make([]byte, pkhLen))

	_, err := h.Handle(TagPublicKey, req.Bytes())
	require.ErrorContains(t, err, "unsupported curve")
}

// --- frame-level tests over a real connection pair ---

func TestServerFrameRoundTripOverConnection(t *testing.T) {
	h, ref := newTestHandler(t)
	server := NewServer(h, WithMaxConnections(1))

	client, serverConn := net.Pipe()
	defer client.Close()

	go server.serveConn(context.Background(), serverConn)

	req := encoding.NewWriter()
	req.Uint8(byte(TagPublicKey))
	req.FixedBytes(encodeBLSPKH(ref.PKH))
	frame := req.Bytes()

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(frame)))

	client.SetDeadline(time.Now().Add(5 * time.Second))
	_, err := client.Write(append(lenBuf[:], frame...))
	require.NoError(t, err)

	var respLenBuf [2]byte
	_, err = readFullHelper(client, respLenBuf[:])
	require.NoError(t, err)
	respLen := binary.BigEndian.Uint16(respLenBuf[:])

	resp := make([]byte, respLen)
	_, err = readFullHelper(client, resp)
	require.NoError(t, err)

	require.Equal(t, byte(ResultOk), resp[0])
	require.Equal(t, ref.PublicKey, resp[1:])
}

func TestServerClosesConnectionOnShortFrame(t *testing.T) {
	h, _ := newTestHandler(t)
	server := NewServer(h, WithMaxConnections(1))

	client, serverConn := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		server.serveConn(context.Background(), serverConn)
		close(done)
	}()

	client.SetDeadline(time.Now().Add(5 * time.Second))
	// Declare a 10-byte frame but only send 3.
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], 10)
	_, err := client.Write(lenBuf[:])
	require.NoError(t, err)
	_, err = client.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	client.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not close connection on short frame")
	}
}

func readFullHelper(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
