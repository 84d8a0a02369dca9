// Package netutil configures the raw socket options spec.md §4.3/§6 require
// of the server's listening socket — TCP_NODELAY, SO_REUSEADDR and
// SO_REUSEPORT — using golang.org/x/sys/unix, since Go's net package
// exposes the first directly (net.TCPConn.SetNoDelay) but not the latter
// two: those require a raw setsockopt(2) call wired through
// net.ListenConfig.Control, the same low-level-syscall style the rest of
// this module's socket/event-loop code follows.
package netutil
