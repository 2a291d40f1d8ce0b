package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// listenerState tracks a listener's lifecycle for logging. Binding only
// briefly precedes Accepting; Draining covers the window between a
// shutdown request and the accept loop actually returning.
type listenerState int

const (
	listenerBinding listenerState = iota
	listenerAccepting
	listenerDraining
	listenerClosed
)

func (s listenerState) String() string {
	switch s {
	case listenerBinding:
		return "binding"
	case listenerAccepting:
		return "accepting"
	case listenerDraining:
		return "draining"
	default:
		return "closed"
	}
}

// NewConn is a freshly accepted connection together with the listener
// kind it came from, handed to the network actor for registration.
type NewConn struct {
	Conn net.Conn
	Kind ClientKind
}

// ListenUnix binds the Unix-domain socket at path and pushes every
// accepted connection onto newConns until ctx is cancelled. The socket
// file is removed on shutdown; unlink failures are logged, not fatal.
// ListenUnix blocks until the accept loop exits.
func ListenUnix(ctx context.Context, logger *zap.Logger, path string, newConns chan<- NewConn) error {
	logger = logger.With(zap.String("listener", "unix"))
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to bind unix socket path %q: %w", path, err)
	}
	logger.Info("listening on unix socket", zap.String("path", path), zap.Stringer("state", listenerAccepting))

	go func() {
		<-ctx.Done()
		logger.Debug("listener draining", zap.Stringer("state", listenerDraining))
		ln.Close()
	}()

	acceptLoop(ctx, logger, ln, ClientUnix, newConns)
	logger.Debug("listener closed", zap.Stringer("state", listenerClosed))

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("failed to remove unix socket path", zap.String("path", path), zap.Error(err))
	}
	return nil
}

// ListenTCP binds address and pushes every accepted connection onto
// newConns until ctx is cancelled. It returns the actual bound port (useful
// when address uses port 0) so the caller can advertise it over mDNS. The
// accept loop runs in its own goroutine; ListenTCP returns once bound.
func ListenTCP(ctx context.Context, logger *zap.Logger, address string, newConns chan<- NewConn) (uint16, error) {
	logger = logger.With(zap.String("listener", "tcp"))

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return 0, fmt.Errorf("failed to bind TCP listener to address %q: %w", address, err)
	}

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	logger.Info("listening on tcp address", zap.Stringer("addr", ln.Addr()), zap.Stringer("state", listenerAccepting))

	go func() {
		<-ctx.Done()
		logger.Debug("listener draining", zap.Stringer("state", listenerDraining))
		ln.Close()
	}()

	go func() {
		acceptLoop(ctx, logger, ln, ClientTCP, newConns)
		logger.Debug("listener closed", zap.Stringer("state", listenerClosed))
	}()

	return port, nil
}

func acceptLoop(ctx context.Context, logger *zap.Logger, ln net.Listener, kind ClientKind, newConns chan<- NewConn) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to accept incoming connection, retrying", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		logger.Info("accepted incoming connection", zap.Stringer("remote", conn.RemoteAddr()))

		select {
		case newConns <- NewConn{Conn: conn, Kind: kind}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}
