package objectserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jcarreira/cirrus/internal/backend"
	"github.com/jcarreira/cirrus/internal/config"
	"github.com/jcarreira/cirrus/internal/wire"
	"github.com/stretchr/testify/require"
)

// startTestServer spins up a Server on 127.0.0.1:0 and returns a dialed
// connection plus a cleanup func, mirroring the in-process integration
// style used across the retrieval pack's server tests.
func startTestServer(t *testing.T, capacity uint64) (net.Conn, func()) {
	t.Helper()
	cfg := config.DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Capacity = capacity
	cfg.MaxClients = 4

	srv := New(cfg, backend.NewMemoryBackend())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = ln
	srv.cfg.ListenAddr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.dispatchLoop()
		}()
		close(ready)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			srv.wg.Add(1)
			go func() {
				defer srv.wg.Done()
				srv.serveConn(conn)
			}()
		}
	}()
	<-ready

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		cancel()
		srv.Close()
	}
	return conn, cleanup
}

func roundTrip(t *testing.T, conn net.Conn, m wire.Message) wire.Message {
	t.Helper()
	require.NoError(t, wire.WriteFrame(conn, m))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := wire.ReadFrame(conn, wire.DefaultMaxFrameSize)
	require.NoError(t, err)
	return reply
}

func TestServerWriteThenRead(t *testing.T) {
	conn, cleanup := startTestServer(t, 1024)
	defer cleanup()

	ack := roundTrip(t, conn, wire.NewWrite(1, 42, []byte("hello")))
	require.True(t, ack.Success)

	readAck := roundTrip(t, conn, wire.NewRead(2, 42))
	require.True(t, readAck.Success)
	require.Equal(t, []byte("hello"), readAck.Bytes)
}

func TestServerReadMissing(t *testing.T) {
	conn, cleanup := startTestServer(t, 1024)
	defer cleanup()

	ack := roundTrip(t, conn, wire.NewRead(1, 999))
	require.False(t, ack.Success)
	require.Equal(t, wire.ErrNoSuchID, ack.Err)
}

// TestServerScenarioS1 exercises spec.md §8 scenario S1 end-to-end over
// the wire: a 128-byte pool, two 100-byte writes, the second rejected.
func TestServerScenarioS1(t *testing.T) {
	conn, cleanup := startTestServer(t, 128)
	defer cleanup()

	ack1 := roundTrip(t, conn, wire.NewWrite(1, 1, make([]byte, 100)))
	require.True(t, ack1.Success)

	ack2 := roundTrip(t, conn, wire.NewWrite(2, 2, make([]byte, 100)))
	require.False(t, ack2.Success)
	require.Equal(t, wire.ErrCapacityExceeded, ack2.Err)

	readAck := roundTrip(t, conn, wire.NewRead(3, 1))
	require.True(t, readAck.Success)
	require.Len(t, readAck.Bytes, 100)
}

func TestServerWriteBulkStopsAtCapacity(t *testing.T) {
	conn, cleanup := startTestServer(t, 100)
	defer cleanup()

	ack := roundTrip(t, conn, wire.NewWriteBulk(1,
		[]uint64{1, 2, 3},
		[][]byte{make([]byte, 50), make([]byte, 40), make([]byte, 50)}, // 1+2 fit, 3 would overflow
	))
	require.False(t, ack.Success)

	read1 := roundTrip(t, conn, wire.NewRead(2, 1))
	require.True(t, read1.Success)
	read2 := roundTrip(t, conn, wire.NewRead(3, 2))
	require.True(t, read2.Success)
	read3 := roundTrip(t, conn, wire.NewRead(4, 3))
	require.False(t, read3.Success)
}

func TestServerReadBulkAllOrNothing(t *testing.T) {
	conn, cleanup := startTestServer(t, 1024)
	defer cleanup()

	roundTrip(t, conn, wire.NewWrite(1, 1, []byte("a")))
	roundTrip(t, conn, wire.NewWrite(2, 2, []byte("b")))

	ack := roundTrip(t, conn, wire.NewReadBulk(3, []uint64{1, 2, 999}))
	require.False(t, ack.Success)
	require.Nil(t, ack.Blobs)

	ack2 := roundTrip(t, conn, wire.NewReadBulk(4, []uint64{1, 2}))
	require.True(t, ack2.Success)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, ack2.Blobs)
}

func TestServerRemove(t *testing.T) {
	conn, cleanup := startTestServer(t, 1024)
	defer cleanup()

	roundTrip(t, conn, wire.NewWrite(1, 7, []byte("x")))
	removeAck := roundTrip(t, conn, wire.NewRemove(2, 7))
	require.True(t, removeAck.Success)

	again := roundTrip(t, conn, wire.NewRemove(3, 7))
	require.False(t, again.Success)
}

func TestServerMaxClientsRejectsExcess(t *testing.T) {
	cfg := config.DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.MaxClients = 1
	cfg.Capacity = 1024

	srv := New(cfg, backend.NewMemoryBackend())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)

	addr := srv.listener.Addr().String()
	c1, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c1.Close()

	c2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c2.Close()

	// c2 should be closed promptly by the server once it exceeds MaxClients.
	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = c2.Read(buf)
	require.Error(t, err)

	srv.Close()
}
