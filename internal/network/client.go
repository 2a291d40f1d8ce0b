package network

import (
	"context"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// client is the actor's bookkeeping record for one connected client. The
// outbox never blocks or drops a send: a slow client's writer must never
// stall a broadcast meant for every other client.
type client struct {
	outbox   *unboundedQueue[protocol.ServerMessage]
	kind     ClientKind
	cancel   context.CancelFunc
	recorder Recorder
}

func newClient(kind ClientKind, cancel context.CancelFunc, recorder Recorder) *client {
	return &client{
		outbox:   newUnboundedQueue[protocol.ServerMessage](),
		kind:     kind,
		cancel:   cancel,
		recorder: recorder,
	}
}

// send enqueues message for delivery. Once the writer loop has closed the
// outbox (client gone), the message is silently discarded — mirroring the
// Rust original's fire-and-forget `tx.send(...).ok()` — though the
// recorder still counts it as sent.
func (c *client) send(message protocol.ServerMessage) {
	c.outbox.send(message)
	c.recorder.MessageSent()
}
