package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// ErrNotConnected is returned by Publish when no peer is connected.
var ErrNotConnected = errors.New("not connected")

// StreamConfig configures a Stream.
type StreamConfig struct {
	// Address is the gateway address to dial, or the listen address when
	// Listen is set.
	Address string

	// Listen accepts peers instead of dialing.
	Listen bool

	// MaxFrameSize bounds frame payloads. Zero selects DefaultMaxFrameSize.
	MaxFrameSize uint32

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration

	// Backoff controls the reconnection delay when dialing.
	Backoff BackoffConfig

	// NodeID tags protocol log events.
	NodeID string

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger records transport frames. Nil disables it.
	ProtocolLogger log.Logger
}

// DefaultStreamConfig returns a StreamConfig with default values.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxFrameSize: DefaultMaxFrameSize,
		DialTimeout:  10 * time.Second,
	}
}

// Stream is a framed TCP transport.
type Stream struct {
	config StreamConfig
	inbox  Deliverer
	logger *slog.Logger

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn   net.Conn
	framer *Framer
}

// NewStream creates a stream transport delivering into inbox.
func NewStream(config StreamConfig, inbox Deliverer) *Stream {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Stream{
		config: config,
		inbox:  inbox,
		logger: logger,
		peers:  make(map[*peer]struct{}),
	}
}

// Run dials or listens, depending on the configuration, until ctx is
// canceled.
func (s *Stream) Run(ctx context.Context) error {
	if s.config.Listen {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", s.config.Address)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.config.Address, err)
		}
		return s.Serve(ctx, ln)
	}
	return s.dialLoop(ctx)
}

// Serve accepts peers on ln until ctx is canceled. It closes ln.
func (s *Stream) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("stream listening", "address", ln.Addr().String())
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ln.Close()
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ServeConn(ctx, conn); err != nil {
				s.logger.Warn("peer dropped", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

func (s *Stream) dialLoop(ctx context.Context) error {
	backoff := NewBackoff(s.config.Backoff)
	dialer := net.Dialer{Timeout: s.config.DialTimeout}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", s.config.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay := backoff.Next()
			s.logger.Warn("dial failed", "address", s.config.Address,
				"attempt", backoff.Attempts(), "retry_in", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		backoff.Reset()
		s.logger.Info("stream connected", "address", s.config.Address)
		err = s.ServeConn(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("stream disconnected", "address", s.config.Address, "error", err)
	}
}

// ServeConn reads frames from conn until it closes or ctx is canceled. The
// connection receives outbound messages while it is served. A clean close
// by the peer returns nil.
func (s *Stream) ServeConn(ctx context.Context, conn net.Conn) error {
	p := &peer{conn: conn, framer: NewFramer(conn, s.config.MaxFrameSize)}
	p.framer.SetLogger(s.config.ProtocolLogger, s.config.NodeID)

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		data, err := p.framer.ReadFrame()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		f, err := DecodeFrame(data)
		if err != nil {
			s.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if err := Dispatch(ctx, s.inbox, f); err != nil {
			if Fatal(err) {
				return err
			}
			s.logger.Warn("inbound delivery failed", "error", err)
		}
	}
}

// Peers returns the number of connected peers.
func (s *Stream) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Publish writes raw to every connected peer. It implements device.Sink.
func (s *Stream) Publish(ctx context.Context, raw wire.RawMessage) error {
	return s.Send(ctx, MessageFrame(raw))
}

// Send writes a frame to every connected peer.
func (s *Stream) Send(ctx context.Context, f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	if len(peers) == 0 {
		return ErrNotConnected
	}

	var errs []error
	for _, p := range peers {
		deadline, _ := ctx.Deadline()
		_ = p.conn.SetWriteDeadline(deadline)
		if err := p.framer.WriteFrame(data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.conn.RemoteAddr(), err))
		}
	}
	return errors.Join(errs...)
}
