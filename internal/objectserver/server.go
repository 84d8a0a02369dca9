// Package objectserver implements the TCP server loop for the object
// store: a listener accepting bounded connections, one reader goroutine
// per connection decoding frames, and a single dispatcher goroutine that
// owns the storage pool so it never needs internal locking.
package objectserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jcarreira/cirrus/internal/backend"
	"github.com/jcarreira/cirrus/internal/config"
	"github.com/jcarreira/cirrus/internal/logging"
	"github.com/jcarreira/cirrus/internal/metrics"
	"github.com/jcarreira/cirrus/internal/netutil"
	"github.com/jcarreira/cirrus/internal/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// request couples a decoded frame with the connection it arrived on, so
// the dispatcher goroutine can write the reply back once it has handled
// the request.
type request struct {
	msg  wire.Message
	conn net.Conn
}

// Authenticator is consulted once per new connection, before its first
// frame is read (spec.md §6). Returning false closes the connection
// immediately. A nil Authenticator admits every connection.
type Authenticator func(net.Conn) bool

// Option configures optional Server behavior not carried by
// config.ServerConfig (spec.md §6 treats Authenticator as a programmatic
// collaborator, not a serializable config value).
type Option func(*Server)

// WithAuthenticator installs auth as the connection gate.
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Server) { s.auth = auth }
}

// Server is one instance of the object-store TCP listener, per spec.md
// §4.3's "a deployment that needs more throughput runs several servers on
// distinct ports" — a process hosts as many Servers as it wants, each
// independently serialized.
type Server struct {
	cfg  config.ServerConfig
	pool *backend.Pool
	log  zerolog.Logger
	auth Authenticator

	listenerMu  sync.Mutex
	listener    net.Listener
	metricsSrv  *http.Server
	dispatchCh  chan request
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
	activeConns int64
}

// Addr returns the bound listen address, or nil if Serve has not yet
// finished binding the listening socket.
func (s *Server) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// New constructs a Server over backend b with cfg's capacity and
// connection limits. It does not start listening; call Serve. opts may
// install an Authenticator via WithAuthenticator; by default every
// connection is admitted.
func New(cfg config.ServerConfig, b backend.Backend, opts ...Option) *Server {
	metrics.PoolCapacity.Set(float64(cfg.Capacity))
	s := &Server{
		cfg:        cfg,
		pool:       backend.NewPool(b, cfg.Capacity),
		log:        logging.Component("objectserver"),
		dispatchCh: make(chan request),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve opens the listening socket and runs until ctx is cancelled or
// Close is called. It blocks the calling goroutine.
func (s *Server) Serve(ctx context.Context) error {
	l, err := netutil.Listen(ctx, s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listenerMu.Lock()
	s.listener = l
	s.listenerMu.Unlock()
	s.log.Info().Str("addr", l.Addr().String()).Msg("listening")

	if s.cfg.MetricsAddr != "" {
		s.startMetricsServer()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatchLoop()
	}()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.done:
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}
		if s.cfg.MaxClients > 0 && int(atomic.LoadInt64(&s.activeConns)) >= s.cfg.MaxClients {
			conn.Close()
			continue
		}
		atomic.AddInt64(&s.activeConns, 1)
		metrics.ActiveConnections.Inc()
		_ = netutil.SetNoDelay(conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
			atomic.AddInt64(&s.activeConns, -1)
			metrics.ActiveConnections.Dec()
		}()
	}
}

// startMetricsServer starts a standalone HTTP listener exposing this
// server's Prometheus registry on /metrics, separate from the object
// store's own TCP port.
func (s *Server) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.NewRegistry(), promhttp.HandlerOpts{}))
	s.metricsSrv = &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn().Err(err).Msg("metrics server failed")
		}
	}()
}

// Close stops accepting connections and stops the dispatcher. It does not
// close accepted client connections: each connection goroutine exits when
// its peer disconnects or when it next hands a frame to the closed server,
// and Serve returns only after all of them have exited.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.listenerMu.Lock()
		l := s.listener
		s.listenerMu.Unlock()
		if l != nil {
			err = l.Close()
		}
		if s.metricsSrv != nil {
			_ = s.metricsSrv.Close()
		}
	})
	return err
}

// Stats exposes the current pool occupancy, e.g. for an admin endpoint.
func (s *Server) Stats() backend.Stats { return s.pool.Stats() }

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()
	connLog := s.log.With().Str("conn_id", connID).Str("remote", conn.RemoteAddr().String()).Logger()
	if s.auth != nil && !s.auth(conn) {
		connLog.Warn().Msg("connection rejected by authenticator")
		return
	}
	maxFrame := s.cfg.MaxFrameSize
	if maxFrame == 0 {
		maxFrame = wire.DefaultMaxFrameSize
	}
	for {
		msg, err := wire.ReadFrame(conn, maxFrame)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return // graceful peer shutdown
			}
			connLog.Warn().Err(err).Msg("connection error")
			return
		}
		select {
		case s.dispatchCh <- request{msg: msg, conn: conn}:
		case <-s.done:
			return
		}
	}
}

// dispatchLoop is the only goroutine that ever touches s.pool, satisfying
// spec.md §4.3/§5's "dispatch is strictly serial per server instance."
func (s *Server) dispatchLoop() {
	for {
		select {
		case req := <-s.dispatchCh:
			reply := s.handle(req.msg)
			if err := wire.WriteFrame(req.conn, reply); err != nil {
				s.log.Warn().Err(err).Msg("write reply failed")
			}
		case <-s.done:
			return
		}
	}
}

func (s *Server) handle(m wire.Message) wire.Message {
	switch m.Kind {
	case wire.KindWrite:
		return s.handleWrite(m)
	case wire.KindRead:
		return s.handleRead(m)
	case wire.KindRemove:
		return s.handleRemove(m)
	case wire.KindWriteBulk:
		return s.handleWriteBulk(m)
	case wire.KindReadBulk:
		return s.handleReadBulk(m)
	default:
		// Unreachable in practice: wire.Unmarshal already rejects unknown
		// kinds before a Message reaches the dispatcher.
		return wire.NewWriteAck(m.TxID, m.OID, false, wire.ErrCapacityExceeded)
	}
}

func (s *Server) handleWrite(m wire.Message) wire.Message {
	if err := s.pool.Put(m.OID, m.Bytes); err != nil {
		metrics.RequestsTotal.WithLabelValues("write", "capacity_exceeded").Inc()
		return wire.NewWriteAck(m.TxID, m.OID, false, wire.ErrCapacityExceeded)
	}
	metrics.PoolBytesUsed.Set(float64(s.pool.Stats().BytesUsed))
	metrics.RequestsTotal.WithLabelValues("write", "ok").Inc()
	return wire.NewWriteAck(m.TxID, m.OID, true, wire.ErrNone)
}

func (s *Server) handleRead(m wire.Message) wire.Message {
	data, err := s.pool.Get(m.OID)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("read", "no_such_id").Inc()
		return wire.NewReadAck(m.TxID, m.OID, false, wire.ErrNoSuchID, nil)
	}
	metrics.RequestsTotal.WithLabelValues("read", "ok").Inc()
	return wire.NewReadAck(m.TxID, m.OID, true, wire.ErrNone, data)
}

func (s *Server) handleRemove(m wire.Message) wire.Message {
	removed, err := s.pool.Remove(m.OID)
	if err != nil {
		removed = false
	}
	metrics.RequestsTotal.WithLabelValues("remove", "ok").Inc()
	metrics.PoolBytesUsed.Set(float64(s.pool.Stats().BytesUsed))
	return wire.NewRemoveAck(m.TxID, m.OID, removed)
}

// handleWriteBulk applies each write in request order, stopping at the
// first capacity-exceeding entry and leaving prior puts in place
// (spec.md §4.3/§8 law 5).
func (s *Server) handleWriteBulk(m wire.Message) wire.Message {
	for i, oid := range m.OIDs {
		if err := s.pool.Put(oid, m.Blobs[i]); err != nil {
			metrics.RequestsTotal.WithLabelValues("write_bulk", "capacity_exceeded").Inc()
			return wire.NewWriteBulkAck(m.TxID, false, wire.ErrCapacityExceeded)
		}
	}
	metrics.PoolBytesUsed.Set(float64(s.pool.Stats().BytesUsed))
	metrics.RequestsTotal.WithLabelValues("write_bulk", "ok").Inc()
	return wire.NewWriteBulkAck(m.TxID, true, wire.ErrNone)
}

// handleReadBulk returns every requested blob or none: an absent id aborts
// the whole reply with success=false and no payload (spec.md §4.3/§8 law 5).
func (s *Server) handleReadBulk(m wire.Message) wire.Message {
	blobs := make([][]byte, len(m.OIDs))
	for i, oid := range m.OIDs {
		data, err := s.pool.Get(oid)
		if err != nil {
			metrics.RequestsTotal.WithLabelValues("read_bulk", "no_such_id").Inc()
			return wire.NewReadBulkAck(m.TxID, false, nil, nil)
		}
		blobs[i] = data
	}
	metrics.RequestsTotal.WithLabelValues("read_bulk", "ok").Inc()
	return wire.NewReadBulkAck(m.TxID, true, m.OIDs, blobs)
}
