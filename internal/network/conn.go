package network

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// runConnection owns one accepted connection for its whole lifetime: it
// runs the reader and writer halves concurrently, and whichever finishes
// first (clean disconnect, decode error, or actor-driven shutdown) tears
// down the other and reports the ClientId as destroyed.
func runConnection(ctx context.Context, logger *zap.Logger, id ClientId, conn net.Conn, c *client, inbound chan<- Inbound, destroyed chan<- ClientId) {
	defer conn.Close()

	// A blocking conn.Read does not observe ctx; closing the connection on
	// cancellation is what actually unblocks readLoop, same as the
	// acceptLoop/listener shutdown pattern.
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeLoop(ctx, logger, id, conn, c)
		// A writer that stops on its own (write or encode failure) closes
		// the connection so readLoop unblocks too.
		conn.Close()
	}()

	readLoop(ctx, logger, id, conn, inbound)

	c.outbox.close()
	wg.Wait()

	select {
	case destroyed <- id:
	case <-ctx.Done():
	}
}

// readLoop decodes frames until a clean EOF, a protocol error, or context
// cancellation. A clean EOF is a normal disconnect and is not logged as an
// error, matching spec.md §4.1.
func readLoop(ctx context.Context, logger *zap.Logger, id ClientId, conn net.Conn, inbound chan<- Inbound) {
	for {
		if ctx.Err() != nil {
			return
		}

		body, err := protocol.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Error("failed to read from client", zap.Stringer("client", id), zap.Error(err))
			}
			return
		}

		msg, err := protocol.DecodeClientMessage(body)
		if err != nil {
			logger.Error("failed to decode message from client", zap.Stringer("client", id), zap.Error(err))
			return
		}

		select {
		case inbound <- Inbound{ID: id, Data: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop drains the client's outbox, encoding and writing each message
// as a frame. A broken pipe is treated as a clean disconnect, same as the
// Rust original; any other write failure is logged as an error.
func writeLoop(ctx context.Context, logger *zap.Logger, id ClientId, conn net.Conn, c *client) {
	for {
		msg, ok := recvWithContext(ctx, c.outbox)
		if !ok {
			return
		}

		body, err := protocol.EncodeServerMessage(msg)
		if err != nil {
			logger.Error("failed to encode message for client", zap.Stringer("client", id), zap.Error(err))
			return
		}

		if err := protocol.WriteFrame(conn, body); err != nil {
			if errors.Is(err, net.ErrClosed) || isBrokenPipe(err) {
				return
			}
			logger.Error("failed to write to client", zap.Stringer("client", id), zap.Error(err))
			return
		}
	}
}

// recvWithContext blocks on q.recv() in a helper goroutine so a shutdown
// can interrupt the wait even when the queue never receives another item.
func recvWithContext(ctx context.Context, q *unboundedQueue[protocol.ServerMessage]) (protocol.ServerMessage, bool) {
	type result struct {
		msg protocol.ServerMessage
		ok  bool
	}
	done := make(chan result, 1)
	go func() {
		msg, ok := q.recv()
		done <- result{msg, ok}
	}()

	select {
	case r := <-done:
		return r.msg, r.ok
	case <-ctx.Done():
		q.close()
		r := <-done
		return r.msg, r.ok
	}
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}
