// Package protocol implements the length-framed binary request/response
// server of spec.md §6/§7. It is structured after the teacher's broker
// package (functional options, structured slog logging, bounded
// concurrency) but reframed onto a plain net.Conn byte stream with a
// 2-byte length prefix instead of the teacher's USB gadget header and
// asynchronous waiter-map correlation — this protocol is synchronous
// and strictly alternating per connection, so no request/response
// correlation id is needed on the wire.
package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/tez-capital/tezsign-core/internal/encoding"
)

type options struct {
	maxConnections int
	logger         *slog.Logger
}

type Option func(*options)

// WithMaxConnections bounds simultaneous connections (spec.md §4.7
// recommends a default of four).
func WithMaxConnections(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConnections = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

const defaultMaxConnections = 4

// Server accepts connections on a listener and serves the signing
// protocol on each, admitting at most maxConnections at a time.
type Server struct {
	handler        *Handler
	maxConnections int
	logger         *slog.Logger

	slots chan struct{} // bounded admission, sized maxConnections
}

func NewServer(handler *Handler, opts ...Option) *Server {
	o := &options{maxConnections: defaultMaxConnections}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Server{
		handler:        handler,
		maxConnections: o.maxConnections,
		logger:         o.logger,
		slots:          make(chan struct{}, o.maxConnections),
	}
}

// Serve accepts connections from l until ctx is canceled or Accept
// fails. Connections beyond maxConnections block in the admission
// queue rather than being refused outright (spec.md §4.7's "refused or
// held pending" is left to this policy choice).
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("protocol: accept: %w", err)
		}

		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			return nil
		}

		go func() {
			defer func() { <-s.slots }()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	connID := uuid.New().String()
	logger := s.logger.With(slog.String("conn", connID), slog.String("remote", conn.RemoteAddr().String()))
	logger.Debug("connection accepted")
	defer func() {
		conn.Close()
		logger.Debug("connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("framing error, closing connection", slog.Any("err", err))
			}
			return
		}

		respBody, tag, handlerErr := s.dispatch(payload)
		if err := writeResponse(conn, respBody, handlerErr); err != nil {
			logger.Debug("write response failed, closing connection", slog.Any("err", err))
			return
		}
		logger.Debug("request handled", slog.Int("tag", int(tag)), slog.Bool("ok", handlerErr == nil))
	}
}

func (s *Server) dispatch(payload []byte) ([]byte, RequestTag, error) {
	r := encoding.NewReader(payload)
	tagByte, err := r.Uint8()
	if err != nil {
		return nil, 0, fmt.Errorf("protocol: empty frame")
	}
	tag := RequestTag(tagByte)
	body := payload[1:]
	resp, err := s.handler.Handle(tag, body)
	return resp, tag, err
}

// readFrame reads the 2-byte big-endian length prefix and exactly that
// many payload bytes, enforcing the 65,535-byte cap without reading
// past it (spec.md §4.7/§8 "frame bounds").
func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("protocol: frame length %d exceeds maximum", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeResponse emits {len:u16}{result_tag}{body} per spec.md §6.
func writeResponse(conn net.Conn, body []byte, handlerErr error) error {
	w := encoding.NewWriter()
	if handlerErr == nil {
		w.Uint8(byte(ResultOk))
		w.FixedBytes(body)
	} else {
		w.Uint8(byte(ResultErr))
		w.LengthPrefixedBytes([]byte(handlerErr.Error()))
	}

	frame := w.Bytes()
	if len(frame) > maxFrameLen {
		return fmt.Errorf("protocol: response frame length %d exceeds maximum", len(frame))
	}

	out := make([]byte, 2+len(frame))
	binary.BigEndian.PutUint16(out, uint16(len(frame)))
	copy(out[2:], frame)

	_, err := conn.Write(out)
	return err
}
