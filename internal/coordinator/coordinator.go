// Package coordinator is the glue between the network actor and the
// supervisor: it owns the persisted Config, relays operations to the
// supervisor, and forwards supervisor events onto the network actor's
// global broadcast channel. It grounds base.rs's ServerTask, which sits
// between NetworkTask and ChildTask in exactly the same way.
package coordinator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
	"github.com/ALinuxPerson/raphy/internal/supervisor"
)

// OperationRecorder receives outcomes of client-requested operations. A
// nil OperationRecorder passed to New is replaced with a no-op.
type OperationRecorder interface {
	OperationPerformed(operation string)
	OperationFailed(operation string)
}

type noopOperationRecorder struct{}

func (noopOperationRecorder) OperationPerformed(string) {}
func (noopOperationRecorder) OperationFailed(string)    {}

// Coordinator implements network.Coordinator. It's defined against the
// supervisor concretely (supervisor has no reason to be mocked out here)
// but satisfies network's interface structurally.
type Coordinator struct {
	logger     *zap.Logger
	supervisor *supervisor.Supervisor
	configPath string
	shutdown   func()
	recorder   OperationRecorder
}

// New builds a Coordinator. shutdown is invoked when a client requests the
// daemon shut down (typically cancelling the daemon's root context).
// recorder may be nil, in which case operation metrics are a no-op.
func New(logger *zap.Logger, sup *supervisor.Supervisor, configPath string, shutdown func(), recorder OperationRecorder) *Coordinator {
	if recorder == nil {
		recorder = noopOperationRecorder{}
	}
	return &Coordinator{
		logger:     logger,
		supervisor: sup,
		configPath: configPath,
		shutdown:   shutdown,
		recorder:   recorder,
	}
}

// Run forwards supervisor events onto global as the equivalent
// ServerMessage, until ctx is cancelled. Intended to run in its own
// goroutine for the daemon's lifetime.
func (c *Coordinator) Run(ctx context.Context, global chan<- protocol.ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.supervisor.Events():
			if !ok {
				return
			}
			c.forward(ctx, global, event)
		}
	}
}

func (c *Coordinator) forward(ctx context.Context, global chan<- protocol.ServerMessage, event supervisor.Event) {
	var msg protocol.ServerMessage
	switch e := event.(type) {
	case supervisor.StdoutEvent:
		msg = protocol.Stdout{Data: e.Data}
	case supervisor.StderrEvent:
		msg = protocol.Stderr{Data: e.Data}
	case supervisor.StateEvent:
		msg = protocol.ServerStateUpdated{State: e.State}
	default:
		c.logger.Warn("received an unrecognized supervisor event", zap.Any("event", event))
		return
	}

	select {
	case global <- msg:
	case <-ctx.Done():
	}
}

// GetConfig returns the currently active configuration, or nil if none has
// been set yet.
func (c *Coordinator) GetConfig(ctx context.Context) *protocol.Config {
	return c.supervisor.Config()
}

// GetServerState returns the child's current lifecycle state.
func (c *Coordinator) GetServerState(ctx context.Context) protocol.ServerState {
	return c.supervisor.State()
}

// UpdateConfig persists cfg to disk and activates it. A persistence
// failure is logged, not returned, matching base.rs's handle_n2s: the
// in-memory config still updates even if the write to disk failed.
func (c *Coordinator) UpdateConfig(ctx context.Context, cfg protocol.Config) {
	if err := protocol.SaveConfig(c.configPath, cfg); err != nil {
		c.logger.Error("failed to save the configuration", zap.Error(err))
	}
	c.supervisor.SetConfig(cfg)
}

// PerformOperation dispatches a Start/Stop/Restart request to the
// supervisor.
func (c *Coordinator) PerformOperation(ctx context.Context, op protocol.Operation) error {
	err := c.performOperation(ctx, op)
	if err != nil {
		c.recorder.OperationFailed(op.String())
	} else {
		c.recorder.OperationPerformed(op.String())
	}
	return err
}

func (c *Coordinator) performOperation(ctx context.Context, op protocol.Operation) error {
	switch op {
	case protocol.OperationStart:
		return c.supervisor.Start(ctx)
	case protocol.OperationStop:
		c.supervisor.Stop()
		return nil
	case protocol.OperationRestart:
		return c.supervisor.Restart()
	default:
		return fmt.Errorf("unknown operation %d", op)
	}
}

// SendInput forwards input bytes to the child's stdin.
func (c *Coordinator) SendInput(data []byte) {
	c.supervisor.SendInput(data)
}

// RequestShutdown invokes the daemon-wide shutdown hook.
func (c *Coordinator) RequestShutdown() {
	c.shutdown()
}
