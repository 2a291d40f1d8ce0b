package network

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
	"github.com/ALinuxPerson/raphy/internal/slab"
)

// Actor is the single-goroutine dispatcher that owns the client registry.
// It is the only thing in the daemon allowed to mutate that registry;
// every other goroutine reaches a client only through a sender clone
// captured before the actor handed off control, matching spec.md §5's
// "shared resource policy".
type Actor struct {
	logger      *zap.Logger
	coordinator Coordinator
	recorder    Recorder
	ids         *protocol.IdGenerator

	clients  *slab.Slab[*client]
	newConns chan NewConn
	inbound  chan Inbound
	destroy  chan ClientId
	global   chan protocol.ServerMessage

	wg sync.WaitGroup
}

// NewActor builds an Actor. newConns is fed by the listeners; global
// carries broadcast events originating outside any client request (e.g.
// child stdout forwarded by the coordinator). recorder may be nil, in
// which case connection/message metrics are a no-op.
func NewActor(logger *zap.Logger, coordinator Coordinator, global chan protocol.ServerMessage, recorder Recorder) *Actor {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Actor{
		logger:      logger,
		coordinator: coordinator,
		recorder:    recorder,
		ids:         protocol.NewIdGenerator(),
		clients:     slab.New[*client](),
		newConns:    make(chan NewConn, 16),
		inbound:     make(chan Inbound, 256),
		destroy:     make(chan ClientId, 16),
		global:      global,
	}
}

// NewConns returns the channel listeners push accepted connections onto.
func (a *Actor) NewConns() chan<- NewConn { return a.newConns }

// Run is the actor's dispatch loop. It returns once ctx is cancelled, after
// every registered client's connection goroutine has been asked to stop.
func (a *Actor) Run(ctx context.Context) {
	defer a.wg.Wait()

	for {
		select {
		case nc := <-a.newConns:
			a.handleNewConn(ctx, nc)
		case in := <-a.inbound:
			a.handleInbound(ctx, in)
		case message := <-a.global:
			a.broadcastAll(message)
		case id := <-a.destroy:
			a.destroyClient(id)
		case <-ctx.Done():
			a.shutdownAll()
			return
		}
	}
}

func (a *Actor) handleNewConn(ctx context.Context, nc NewConn) {
	connCtx, cancel := context.WithCancel(ctx)
	c := newClient(nc.Kind, cancel, a.recorder)
	id := ClientId(a.clients.Insert(c))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		runConnection(connCtx, a.logger, id, nc.Conn, c, a.inbound, a.destroy)
	}()

	a.recorder.ConnectionOpened()
	a.logger.Info("new client connected to the server", zap.Stringer("kind", nc.Kind), zap.Stringer("client", id))
}

func (a *Actor) destroyClient(id ClientId) {
	c, ok := a.clients.Remove(int(id))
	if !ok {
		a.logger.Warn("attempted to remove non-existent client", zap.Stringer("client", id))
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	a.recorder.ConnectionClosed()
	a.logger.Info("client disconnected from the server", zap.Stringer("kind", c.kind), zap.Stringer("client", id))
}

func (a *Actor) shutdownAll() {
	a.clients.Range(func(_ int, c *client) bool {
		if c.cancel != nil {
			c.cancel()
		}
		return true
	})
}

func (a *Actor) broadcastAll(message protocol.ServerMessage) {
	a.logger.Debug("broadcast message", zap.Any("message", message))
	a.clients.Range(func(_ int, c *client) bool {
		c.send(message)
		return true
	})
}

// broadcaster snapshots every client's sender. When active is non-nil its
// TaskId is paired with that client's own sender and excluded from others.
func (a *Actor) broadcaster(active *ClientId, task protocol.TaskId) messageBroadcaster {
	var b messageBroadcaster
	a.clients.Range(func(key int, c *client) bool {
		if active != nil && ClientId(key) == *active {
			b.active = c
			t := task
			b.activeTask = &t
			return true
		}
		b.others = append(b.others, c)
		return true
	})
	return b
}

func (a *Actor) clientOf(id ClientId) (*client, bool) {
	return a.clients.Get(int(id))
}
