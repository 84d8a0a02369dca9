package netutil

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen opens a TCP listener on addr with SO_REUSEADDR and SO_REUSEPORT
// set on the underlying socket before bind(2), per spec.md §4.3/§6.
// Backlog is left at the platform maximum by not overriding it (Go's
// runtime already requests the platform's SOMAXCONN-capped backlog).
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					sockErr = fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					sockErr = fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
					return
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

// SetNoDelay enables TCP_NODELAY on conn if it is a *net.TCPConn,
// disabling Nagle's algorithm so small request/reply frames aren't
// batched and delayed.
func SetNoDelay(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return tc.SetNoDelay(true)
}
