// Package client is a managed Go SDK for talking to the daemon: it dials
// either socket kind, demultiplexes tagged replies from the untagged
// broadcast stream by TaskId, and exposes one call per operation plus an
// Events() channel for broadcasts. It grounds managed.rs, adapted from
// that file's channel-actor pair (client_reader_task/client_writer_task)
// to a single reader goroutine over a mutex-guarded pending-request map —
// Go's usual shape for "demux replies to whichever caller is waiting".
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// ErrNotLocal is returned by Shutdown when called on a TCP-connected
// Client; only a Unix-domain client may request a shutdown, matching
// spec.md §4.6.
var ErrNotLocal = errors.New("raphy: shutdown requires a local (unix-domain) client")

// ErrClosed is returned by any call made after the connection to the
// daemon has been lost or Close has been called.
var ErrClosed = errors.New("raphy: client connection is closed")

// Client is a connection to the daemon. It is safe for concurrent use:
// multiple goroutines may issue requests at once, each correlated to its
// own reply by TaskId.
type Client struct {
	conn  net.Conn
	local bool
	ids   *protocol.IdGenerator

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[protocol.TaskId]chan protocol.ServerMessage

	events chan protocol.ServerMessage
	closed chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// DialUnix connects to the daemon over its Unix-domain socket at path.
func DialUnix(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to dial the unix socket %q: %w", path, err)
	}
	return newClient(conn, true), nil
}

// DialTCP connects to the daemon over TCP at address.
func DialTCP(address string) (*Client, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %q: %w", address, err)
	}
	return newClient(conn, false), nil
}

// newClient wraps an already-connected socket. local selects the Unix vs.
// TCP behaviour difference (currently only Shutdown's authority check);
// it's a parameter rather than inferred from conn's type so tests can use
// net.Pipe for either kind.
func newClient(conn net.Conn, local bool) *Client {
	c := &Client{
		conn:    conn,
		local:   local,
		ids:     protocol.NewIdGenerator(),
		pending: make(map[protocol.TaskId]chan protocol.ServerMessage),
		events:  make(chan protocol.ServerMessage, 64),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events returns the channel of broadcasts not addressed to any one
// pending request: OperationRequested, Stdout/Stderr, ServerStateUpdated,
// FatalError, ShuttingDown, and the untagged fan-out copies of
// ConfigUpdated / OperationPerformed / OperationFailed. The channel holds
// up to 64 messages; a message that arrives while it is full is dropped.
// The channel is closed once the connection is lost.
func (c *Client) Events() <-chan protocol.ServerMessage { return c.events }

// Close shuts down the underlying connection.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer c.fail(ErrClosed)
	for {
		body, err := protocol.ReadFrame(c.conn)
		if err != nil {
			c.fail(fmt.Errorf("failed to read a frame from the daemon: %w", err))
			return
		}

		msg, err := protocol.DecodeServerMessage(body)
		if err != nil {
			c.fail(fmt.Errorf("failed to decode a message from the daemon: %w", err))
			return
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.ServerMessage) {
	if task, ok := protocol.ServerMessageTask(msg); ok {
		c.mu.Lock()
		ch, exists := c.pending[task]
		if exists {
			delete(c.pending, task)
		}
		c.mu.Unlock()

		if exists {
			ch <- msg
			return
		}
	}

	select {
	case c.events <- msg:
	default:
	}
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		close(c.events)
	})
}

func (c *Client) writeMessage(msg protocol.ClientMessage) error {
	body, err := protocol.EncodeClientMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.conn, body); err != nil {
		return fmt.Errorf("failed to write a frame to the daemon: %w", err)
	}
	return nil
}

// request sends a tagged ClientMessage and waits for its matching tagged
// reply, or for ctx to be cancelled, or for the connection to close.
func (c *Client) request(ctx context.Context, build func(task protocol.TaskId) protocol.ClientMessage) (protocol.ServerMessage, error) {
	task := c.ids.NextTaskId()
	ch := make(chan protocol.ServerMessage, 1)

	c.mu.Lock()
	c.pending[task] = ch
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pending, task)
		c.mu.Unlock()
	}

	if err := c.writeMessage(build(task)); err != nil {
		cleanup()
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-c.closed:
		cleanup()
		return nil, c.closeErr
	}
}

// Ping round-trips a message to the daemon.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.request(ctx, func(task protocol.TaskId) protocol.ClientMessage {
		return protocol.Ping{Task: task}
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(protocol.Pong); !ok {
		return fmt.Errorf("unexpected reply to ping: %T", reply)
	}
	return nil
}

// GetConfig fetches the daemon's currently active configuration, which is
// nil if none has been set yet.
func (c *Client) GetConfig(ctx context.Context) (*protocol.Config, error) {
	reply, err := c.request(ctx, func(task protocol.TaskId) protocol.ClientMessage {
		return protocol.GetConfig{Task: task}
	})
	if err != nil {
		return nil, err
	}
	current, ok := reply.(protocol.CurrentConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected reply to get config: %T", reply)
	}
	return current.Config, nil
}

// GetServerState fetches the child process's current lifecycle state.
func (c *Client) GetServerState(ctx context.Context) (protocol.ServerState, error) {
	reply, err := c.request(ctx, func(task protocol.TaskId) protocol.ClientMessage {
		return protocol.GetServerState{Task: task}
	})
	if err != nil {
		return protocol.ServerState{}, err
	}
	current, ok := reply.(protocol.CurrentServerState)
	if !ok {
		return protocol.ServerState{}, fmt.Errorf("unexpected reply to get server state: %T", reply)
	}
	return current.State, nil
}

// UpdateConfig replaces the daemon's configuration.
func (c *Client) UpdateConfig(ctx context.Context, cfg protocol.Config) error {
	reply, err := c.request(ctx, func(task protocol.TaskId) protocol.ClientMessage {
		return protocol.UpdateConfig{Task: task, Config: cfg}
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(protocol.ConfigUpdated); !ok {
		return fmt.Errorf("unexpected reply to update config: %T", reply)
	}
	return nil
}

// PerformOperation requests a Start/Stop/Restart of the child process and
// waits for it to complete, returning the daemon's reported failure (if
// any) as a plain error.
func (c *Client) PerformOperation(ctx context.Context, op protocol.Operation) error {
	reply, err := c.request(ctx, func(task protocol.TaskId) protocol.ClientMessage {
		return protocol.PerformOperation{Task: task, Operation: op}
	})
	if err != nil {
		return err
	}

	switch v := reply.(type) {
	case protocol.OperationPerformed:
		return nil
	case protocol.OperationFailed:
		return v.Err
	default:
		return fmt.Errorf("unexpected reply to perform operation: %T", reply)
	}
}

// SendInput forwards bytes to the child process's stdin. The protocol
// carries no acknowledgement for this message, so this returns as soon as
// the frame has been written.
func (c *Client) SendInput(data []byte) error {
	return c.writeMessage(protocol.Input{Data: data})
}

// Shutdown requests the daemon shut down. Only a Unix-domain client has
// this authority; a TCP client gets ErrNotLocal without anything being
// sent over the wire.
func (c *Client) Shutdown() error {
	if !c.local {
		return ErrNotLocal
	}
	return c.writeMessage(protocol.ShutdownRequest{})
}
