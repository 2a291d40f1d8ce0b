package network

import (
	"context"

	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// handleInbound implements spec.md §4.6's client-to-server dispatch table.
func (a *Actor) handleInbound(ctx context.Context, in Inbound) {
	a.logger.Debug("received new message from a client", zap.Stringer("client", in.ID), zap.Any("message", in.Data))
	a.recorder.MessageReceived()

	switch msg := in.Data.(type) {
	case protocol.Ping:
		a.handlePing(in.ID, msg.Task)
	case protocol.GetConfig:
		a.handleGetConfig(ctx, in.ID, msg.Task)
	case protocol.GetServerState:
		a.handleGetServerState(ctx, in.ID, msg.Task)
	case protocol.UpdateConfig:
		a.handleUpdateConfig(ctx, in.ID, msg.Task, msg.Config)
	case protocol.PerformOperation:
		a.handlePerformOperation(ctx, in.ID, msg.Task, msg.Operation)
	case protocol.Input:
		a.handleInput(msg.Data)
	case protocol.ShutdownRequest:
		a.handleShutdownRequest(in.ID)
	}
}

func (a *Actor) handlePing(id ClientId, task protocol.TaskId) {
	c, ok := a.clientOf(id)
	if !ok {
		a.logger.Warn("client tried to ping the server, but it doesn't exist", zap.Stringer("client", id))
		return
	}
	c.send(protocol.Pong{Task: task})
}

func (a *Actor) handleGetConfig(ctx context.Context, id ClientId, task protocol.TaskId) {
	c, ok := a.clientOf(id)
	if !ok {
		a.logger.Warn("client tried to get the config, but it doesn't exist", zap.Stringer("client", id))
		return
	}

	go func() {
		cfg := a.coordinator.GetConfig(ctx)
		c.send(protocol.CurrentConfig{Config: cfg, Task: task})
		a.logger.Debug("finished responding to message", zap.Stringer("client", id), zap.Uint64("task", uint64(task)))
	}()
}

func (a *Actor) handleGetServerState(ctx context.Context, id ClientId, task protocol.TaskId) {
	c, ok := a.clientOf(id)
	if !ok {
		a.logger.Warn("client tried to get the server state, but it doesn't exist", zap.Stringer("client", id))
		return
	}

	go func() {
		state := a.coordinator.GetServerState(ctx)
		c.send(protocol.CurrentServerState{State: state, Task: task})
		a.logger.Debug("finished responding to message", zap.Stringer("client", id), zap.Uint64("task", uint64(task)))
	}()
}

func (a *Actor) handleUpdateConfig(ctx context.Context, id ClientId, task protocol.TaskId, cfg protocol.Config) {
	broadcaster := a.broadcaster(&id, task)

	go func() {
		a.coordinator.UpdateConfig(ctx, cfg)
		broadcaster.broadcastWithTask(func(t *protocol.TaskId) protocol.ServerMessage {
			return protocol.ConfigUpdated{Config: cfg, Task: t}
		})
		a.logger.Debug("finished responding to message", zap.Stringer("client", id), zap.Uint64("task", uint64(task)))
	}()
}

func (a *Actor) handlePerformOperation(ctx context.Context, id ClientId, task protocol.TaskId, op protocol.Operation) {
	opId := a.ids.NextOperationId()
	a.broadcastAll(protocol.OperationRequested{Operation: op, OpId: opId})

	broadcaster := a.broadcaster(&id, task)

	go func() {
		if err := a.coordinator.PerformOperation(ctx, op); err != nil {
			broadcaster.broadcastWithTask(func(t *protocol.TaskId) protocol.ServerMessage {
				return protocol.OperationFailed{Operation: op, OpId: opId, Err: protocol.NewWireError(err), Task: t}
			})
		} else {
			broadcaster.broadcastWithTask(func(t *protocol.TaskId) protocol.ServerMessage {
				return protocol.OperationPerformed{Operation: op, OpId: opId, Task: t}
			})
		}
		a.logger.Debug("finished responding to message", zap.Stringer("client", id), zap.Uint64("task", uint64(task)))
	}()
}

func (a *Actor) handleInput(data []byte) {
	a.coordinator.SendInput(data)
	a.logger.Debug("finished responding to input message")
}

// handleShutdownRequest honours spec.md §4.6: only a Unix-domain client
// may shut the daemon down. A TCP client's request is logged and dropped.
func (a *Actor) handleShutdownRequest(id ClientId) {
	c, ok := a.clientOf(id)
	if !ok {
		a.logger.Warn("client tried to shut down the server, but it doesn't exist", zap.Stringer("client", id))
		return
	}

	if c.kind != ClientUnix {
		a.logger.Warn("client tried to shut down the server, but it's not a local client", zap.Stringer("client", id))
		return
	}

	a.coordinator.RequestShutdown()
}
