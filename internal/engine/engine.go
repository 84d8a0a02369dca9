// Package engine implements the asynchronous client engine from spec.md
// §4.4: one or more connections to a single server, a sender goroutine
// draining a FIFO send queue round-robin over the connection pool, one
// receiver goroutine per connection resolving pending transactions by
// id, and a Future[R] result type.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jcarreira/cirrus/internal/config"
	"github.com/jcarreira/cirrus/internal/errs"
	"github.com/jcarreira/cirrus/internal/logging"
	"github.com/jcarreira/cirrus/internal/wire"
	"github.com/rs/zerolog"
)

// pendingTx is the type-erased interface a resolved frame is delivered
// through; each Async method wraps its own Future[R] in a concrete
// implementation so the transaction map can hold a single value type
// regardless of the caller's R.
type pendingTx interface {
	resolveMsg(m wire.Message)
	resolveErr(err error)
}

// Engine is a connected client: a pool of TCP connections, a FIFO outgoing
// queue, and the sender/receiver goroutines spec.md §4.4 describes.
//
// Thread Safety:
// Every exported method is safe for concurrent use by multiple
// goroutines. Outgoing requests are serialized onto a single channel and
// fanned out round-robin over the connection pool by one sender
// goroutine; incoming replies are matched back to their caller by
// transaction id under a mutex guarding the pending map.
//
// Performance:
// Throughput scales with NumConns up to the point the server or network
// saturates; latency per request is one round trip regardless of pool
// size, since a request and its reply always share one connection.
type Engine struct {
	cfg   config.ClientConfig
	conns []net.Conn

	connIdx uint64 // round-robin cursor, atomic
	txSeq   uint64 // transaction id allocator, atomic

	sendCh chan wire.Message

	mu      sync.Mutex
	pending map[uint64]pendingTx

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	log       zerolog.Logger
}

// Dial opens cfg.NumConns connections to cfg.ServerAddr and starts the
// sender and per-connection receiver goroutines.
//
// Parameters:
//   - ctx: bounds the dial attempts; cancellation mid-dial aborts and
//     closes any connections already opened.
//   - cfg: ServerAddr, NumConns (defaults to 1), DialTimeout,
//     RequestQueue (defaults to 1024), and MaxFrameSize.
//
// Returns:
//   - a started *Engine ready to accept WriteAsync/ReadAsync/etc calls.
//   - an error wrapping the first failed dial; any connections already
//     opened in this call are closed before returning.
func Dial(ctx context.Context, cfg config.ClientConfig) (*Engine, error) {
	n := cfg.NumConns
	if n <= 0 {
		n = 1
	}
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conns := make([]net.Conn, 0, n)
	for i := 0; i < n; i++ {
		conn, err := dialer.DialContext(ctx, "tcp", cfg.ServerAddr)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, errs.New(errs.KindConnectionFailed, "engine.Dial", 0, fmt.Errorf("dial %s: %w", cfg.ServerAddr, err))
		}
		conns = append(conns, conn)
	}

	queueSize := cfg.RequestQueue
	if queueSize <= 0 {
		queueSize = 1024
	}

	instanceID := uuid.NewString()
	e := &Engine{
		cfg:     cfg,
		conns:   conns,
		sendCh:  make(chan wire.Message, queueSize),
		pending: make(map[uint64]pendingTx),
		done:    make(chan struct{}),
		log:     logging.Component("engine").With().Str("engine_id", instanceID).Logger(),
	}

	e.wg.Add(1)
	go e.senderLoop()
	for _, conn := range conns {
		e.wg.Add(1)
		go e.receiverLoop(conn)
	}
	return e, nil
}

// Close cancels the sender and receiver goroutines and resolves every
// outstanding future with ErrConnectionFailed (spec.md §4.4 cancellation).
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		for _, c := range e.conns {
			c.Close()
		}
	})
	e.wg.Wait()
	return nil
}

func (e *Engine) nextConn() net.Conn {
	i := atomic.AddUint64(&e.connIdx, 1)
	return e.conns[int(i)%len(e.conns)]
}

func (e *Engine) nextTxID() uint64 {
	return atomic.AddUint64(&e.txSeq, 1)
}

// enqueue registers tx under a fresh transaction id and pushes msg (with
// that id stamped in) onto the send queue. If the engine is already
// closed, tx is resolved immediately with ErrConnectionFailed.
func (e *Engine) enqueue(msg wire.Message, tx pendingTx) {
	select {
	case <-e.done:
		tx.resolveErr(errs.ErrConnectionFailed)
		return
	default:
	}

	txID := e.nextTxID()
	msg.TxID = txID

	e.mu.Lock()
	e.pending[txID] = tx
	e.mu.Unlock()

	select {
	case e.sendCh <- msg:
	case <-e.done:
		e.mu.Lock()
		delete(e.pending, txID)
		e.mu.Unlock()
		tx.resolveErr(errs.ErrConnectionFailed)
	}
}

func (e *Engine) senderLoop() {
	defer e.wg.Done()
	for {
		select {
		case msg := <-e.sendCh:
			conn := e.nextConn()
			if err := wire.WriteFrame(conn, msg); err != nil {
				e.log.Warn().Err(err).Msg("send failed")
				e.failPending(msg.TxID, errs.ErrConnectionFailed)
			}
		case <-e.done:
			return
		}
	}
}

func (e *Engine) receiverLoop(conn net.Conn) {
	defer e.wg.Done()
	for {
		msg, err := wire.ReadFrame(conn, e.maxFrameSize())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.log.Warn().Err(err).Msg("receive failed")
			}
			e.failAllPending(errs.ErrConnectionFailed)
			return
		}
		e.completeTx(msg)
	}
}

func (e *Engine) maxFrameSize() int {
	if e.cfg.MaxFrameSize > 0 {
		return e.cfg.MaxFrameSize
	}
	return wire.DefaultMaxFrameSize
}

func (e *Engine) completeTx(msg wire.Message) {
	e.mu.Lock()
	tx, ok := e.pending[msg.TxID]
	if ok {
		delete(e.pending, msg.TxID)
	}
	e.mu.Unlock()
	if ok {
		tx.resolveMsg(msg)
	}
}

func (e *Engine) failPending(txID uint64, err error) {
	e.mu.Lock()
	tx, ok := e.pending[txID]
	if ok {
		delete(e.pending, txID)
	}
	e.mu.Unlock()
	if ok {
		tx.resolveErr(err)
	}
}

func (e *Engine) failAllPending(err error) {
	e.mu.Lock()
	all := e.pending
	e.pending = make(map[uint64]pendingTx)
	e.mu.Unlock()
	for _, tx := range all {
		tx.resolveErr(err)
	}
}

// --- typed async operations ---

type boolTx struct{ f *Future[bool] }

func (t boolTx) resolveErr(err error) { t.f.resolve(false, err) }

type readTx struct{ f *Future[[]byte] }

func (t readTx) resolveErr(err error) { t.f.resolve(nil, err) }

type bulkReadTx struct{ f *Future[[][]byte] }

func (t bulkReadTx) resolveErr(err error) { t.f.resolve(nil, err) }

func (t boolTx) resolveMsg(m wire.Message) {
	switch m.Kind {
	case wire.KindWriteAck, wire.KindWriteBulkAck:
		if m.Success {
			t.f.resolve(true, nil)
		} else {
			t.f.resolve(false, &errs.Error{Kind: errs.KindCapacityExceeded, Op: "write"})
		}
	case wire.KindRemoveAck:
		t.f.resolve(m.Success, nil)
	default:
		t.f.resolve(false, &errs.Error{Kind: errs.KindProtocol, Op: "decode"})
	}
}

func (t readTx) resolveMsg(m wire.Message) {
	if m.Kind != wire.KindReadAck {
		t.f.resolve(nil, &errs.Error{Kind: errs.KindProtocol, Op: "decode"})
		return
	}
	if !m.Success {
		t.f.resolve(nil, &errs.Error{Kind: errs.KindNoSuchID, Op: "read", ID: m.OID})
		return
	}
	t.f.resolve(m.Bytes, nil)
}

func (t bulkReadTx) resolveMsg(m wire.Message) {
	if m.Kind != wire.KindReadBulkAck {
		t.f.resolve(nil, &errs.Error{Kind: errs.KindProtocol, Op: "decode"})
		return
	}
	if !m.Success {
		t.f.resolve(nil, &errs.Error{Kind: errs.KindNoSuchID, Op: "read_bulk"})
		return
	}
	t.f.resolve(m.Blobs, nil)
}

// WriteAsync stores data under oid, returning a future for the boolean
// success result.
func (e *Engine) WriteAsync(oid uint64, data []byte) *Future[bool] {
	f := newFuture[bool]()
	e.enqueue(wire.NewWrite(0, oid, data), boolTx{f})
	return f
}

// ReadAsync retrieves the bytes stored under oid.
func (e *Engine) ReadAsync(oid uint64) *Future[[]byte] {
	f := newFuture[[]byte]()
	e.enqueue(wire.NewRead(0, oid), readTx{f})
	return f
}

// RemoveAsync deletes oid, returning whether it was present.
func (e *Engine) RemoveAsync(oid uint64) *Future[bool] {
	f := newFuture[bool]()
	e.enqueue(wire.NewRemove(0, oid), boolTx{f})
	return f
}

// WriteBulkAsync writes oids[i] -> blobs[i] for every i. The server stops
// at the first write that would exceed its capacity; earlier writes stay.
func (e *Engine) WriteBulkAsync(oids []uint64, blobs [][]byte) *Future[bool] {
	f := newFuture[bool]()
	e.enqueue(wire.NewWriteBulk(0, oids, blobs), boolTx{f})
	return f
}

// ReadBulkAsync retrieves every id in oids, all-or-nothing.
func (e *Engine) ReadBulkAsync(oids []uint64) *Future[[][]byte] {
	f := newFuture[[][]byte]()
	e.enqueue(wire.NewReadBulk(0, oids), bulkReadTx{f})
	return f
}

// Write is the synchronous wrapper over WriteAsync.
func (e *Engine) Write(ctx context.Context, oid uint64, data []byte) error {
	_, err := e.WriteAsync(oid, data).Get(ctx)
	return err
}

// Read is the synchronous wrapper over ReadAsync.
func (e *Engine) Read(ctx context.Context, oid uint64) ([]byte, error) {
	return e.ReadAsync(oid).Get(ctx)
}

// Remove is the synchronous wrapper over RemoveAsync.
func (e *Engine) Remove(ctx context.Context, oid uint64) (bool, error) {
	return e.RemoveAsync(oid).Get(ctx)
}
