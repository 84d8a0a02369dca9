package cirrus

import (
	"context"
	"net"

	"github.com/jcarreira/cirrus/internal/backend"
	"github.com/jcarreira/cirrus/internal/objectserver"
)

// Server hosts one storage pool on a TCP listener.
type Server struct {
	inner *objectserver.Server
}

// Authenticator is consulted once per new connection, before its first
// frame is read (spec.md §6). Returning false closes the connection
// immediately. A nil Authenticator (the default) admits every connection.
type Authenticator = objectserver.Authenticator

// ServerOption configures optional Server behavior not carried by
// ServerConfig.
type ServerOption = objectserver.Option

// WithAuthenticator installs auth as the connection gate for a server
// constructed by NewMemoryServer or NewDiskServer.
func WithAuthenticator(auth Authenticator) ServerOption {
	return objectserver.WithAuthenticator(auth)
}

// NewMemoryServer constructs a Server whose pool is backed by an
// in-memory map; data does not survive a restart.
func NewMemoryServer(cfg ServerConfig, opts ...ServerOption) *Server {
	return &Server{inner: objectserver.New(cfg, backend.NewMemoryBackend(), opts...)}
}

// NewDiskServer constructs a Server whose pool is backed by one file per
// object under dir; data survives a restart.
func NewDiskServer(cfg ServerConfig, dir string, opts ...ServerOption) (*Server, error) {
	b, err := backend.NewDiskBackend(dir)
	if err != nil {
		return nil, err
	}
	return &Server{inner: objectserver.New(cfg, b, opts...)}, nil
}

// Serve binds the listening socket and runs until ctx is cancelled or
// Close is called. It blocks the calling goroutine.
func (s *Server) Serve(ctx context.Context) error { return s.inner.Serve(ctx) }

// Close stops accepting connections. It does not close accepted client
// connections; Serve returns once each of them has been closed by its
// peer or has sent a frame after Close.
func (s *Server) Close() error { return s.inner.Close() }

// Addr returns the bound listen address, or nil before Serve has bound it.
func (s *Server) Addr() net.Addr { return s.inner.Addr() }

// Stats returns the current pool occupancy.
func (s *Server) Stats() backend.Stats { return s.inner.Stats() }
