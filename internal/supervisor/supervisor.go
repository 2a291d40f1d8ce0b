// Package supervisor owns the child Java server process: spawning it per
// a resolved Config, piping its stdio, signalling it to stop or restart,
// and reporting its lifecycle back to the rest of the daemon. It grounds
// child.rs's ChildTask, adapted from an async actor to a mutex-guarded
// struct — every operation here (spawn, signal, read state) completes
// fast enough that Go's usual "just take the lock" idiom is a faithful
// stand-in for the single-threaded task the original relied on.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// sampleInterval is how often a running child's resource usage is sampled
// for the metrics gauges, matching a typical Prometheus scrape interval.
const sampleInterval = 5 * time.Second

type runningChild struct {
	cmd      *exec.Cmd
	stdin    chan []byte
	cancel   context.CancelFunc
	pid      int
}

// Supervisor is the daemon's sole owner of the child process. All state
// transitions happen under mu; events are reported asynchronously to
// whatever is draining Events().
type Supervisor struct {
	logger   *zap.Logger
	events   chan Event
	recorder Recorder

	mu                sync.Mutex
	config            *protocol.Config
	running           *runningChild
	sigtermInProgress bool
	restartInProgress bool
}

// New builds a Supervisor in the Stopped state. config may be nil when no
// configuration has been persisted yet, matching ChildTask::new's
// Option<Config>. recorder may be nil, in which case metrics reporting is
// a no-op.
func New(logger *zap.Logger, config *protocol.Config, recorder Recorder) *Supervisor {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Supervisor{
		logger:   logger,
		events:   make(chan Event, 1024),
		config:   config,
		recorder: recorder,
	}
}

// Events returns the channel the coordinator drains for Stdout/Stderr and
// server-state transitions.
func (s *Supervisor) Events() <-chan Event { return s.events }

// emitCritical delivers a transition that must never be silently dropped:
// callers already hold, or have just released, mu.
func (s *Supervisor) emitCritical(e Event) {
	s.events <- e
}

// emitDroppable delivers child output. A full channel means nothing is
// draining fast enough; dropping here (rather than blocking the reader
// pump) matches spec.md §5's "drop events, keep replies" backpressure
// policy.
func (s *Supervisor) emitDroppable(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Warn("dropped a child output event, events channel is full")
		s.recorder.OutputDropped()
	}
}

// Config returns the currently active configuration, or nil if none has
// been set yet.
func (s *Supervisor) Config() *protocol.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfig replaces the active configuration. It does not affect an
// already-running child; the new values take effect on the next Start.
func (s *Supervisor) SetConfig(cfg protocol.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
}

// State reports the child's current lifecycle state.
func (s *Supervisor) State() protocol.ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return protocol.StartedState
	}
	return protocol.StoppedState(nil)
}

// SendInput forwards bytes to the child's stdin. A no-op when the child
// isn't running, matching handle_s2c_stdin's silent drop.
func (s *Supervisor) SendInput(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return
	}
	select {
	case s.running.stdin <- data:
	default:
		s.logger.Warn("dropped stdin input, the child's stdin queue is full")
	}
}

// Start spawns the child process if it isn't already running. It requires
// a configuration to have been set.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Supervisor) startLocked(ctx context.Context) error {
	if s.running != nil {
		return nil
	}

	if s.config == nil {
		return fmt.Errorf("a server configuration is required to start the server")
	}

	resolved, _, err := s.config.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve the server configuration: %w", err)
	}

	args := make([]string, 0, len(resolved.JavaArguments)+2+len(resolved.ServerArguments))
	args = append(args, resolved.JavaArguments...)
	args = append(args, "-jar", resolved.ServerJarPath)
	args = append(args, resolved.ServerArguments...)

	cmd := s.config.User.Command(resolved.JavaPath, args...)
	cmd.Dir = filepath.Dir(resolved.ServerJarPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin for the server process: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout for the server process: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr for the server process: %w", err)
	}

	s.logger.Debug("starting server process", zap.String("program", cmd.Path), zap.Strings("args", cmd.Args))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start the server process: %w", err)
	}

	stdioCtx, cancel := context.WithCancel(context.Background())
	stdinCh := make(chan []byte, 256)

	rc := &runningChild{cmd: cmd, stdin: stdinCh, cancel: cancel, pid: cmd.Process.Pid}
	s.running = rc

	go pumpStdin(stdioCtx, s.logger, stdin, stdinCh, cancel)
	go pumpOutput(stdioCtx, stdout, func(b []byte) { s.emitDroppable(StdoutEvent{Data: b}) })
	go pumpOutput(stdioCtx, stderr, func(b []byte) { s.emitDroppable(StderrEvent{Data: b}) })
	go s.waitForChild(rc)
	go s.sampleResourcesLoop(stdioCtx, rc.pid)

	s.emitCritical(StateEvent{State: protocol.StartedState})
	return nil
}

// Stop signals the running child to terminate: SIGTERM on the first call,
// escalating to SIGKILL if a stop is already in flight and the process
// hasn't exited yet.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.running == nil || s.running.pid == 0 {
		return
	}

	signal := syscall.SIGTERM
	if s.sigtermInProgress {
		signal = syscall.SIGKILL
	}

	if err := s.running.cmd.Process.Signal(signal); err != nil {
		s.logger.Error("failed to signal the server process", zap.Int("pid", s.running.pid), zap.Error(err))
	}
	s.sigtermInProgress = true
}

// Restart stops the running child and arranges for Start to run again
// once it has fully exited. If nothing is running, it just starts one
// directly rather than setting a restart flag nothing would ever clear.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return s.startLocked(context.Background())
	}
	s.stopLocked()
	s.restartInProgress = true
	return nil
}

// waitForChild blocks on the child's exit and reports the outcome,
// mirroring child.rs's "waiter" subsystem and the dead_rx handling in
// ChildTask::run.
func (s *Supervisor) waitForChild(rc *runningChild) {
	err := rc.cmd.Wait()
	rc.cancel()

	var exit *protocol.ExitStatus
	// A non-zero exit or a signal death still has an observed status; only
	// a failure of Wait itself leaves exit nil.
	if _, exited := err.(*exec.ExitError); err == nil || exited {
		status := protocol.ExitStatusFromSuccess(rc.cmd.ProcessState.Success())
		exit = &status
		s.logger.Info("server process exited", zap.Int("pid", rc.pid), zap.String("status", rc.cmd.ProcessState.String()))
	} else {
		s.logger.Error("failed to wait for the server process to exit", zap.Int("pid", rc.pid), zap.Error(err))
	}

	s.mu.Lock()
	if s.running == rc {
		s.running = nil
	}
	s.sigtermInProgress = false
	restart := s.restartInProgress
	s.restartInProgress = false
	s.mu.Unlock()

	s.emitCritical(StateEvent{State: protocol.StoppedState(exit)})

	if restart {
		s.mu.Lock()
		startErr := s.startLocked(context.Background())
		s.mu.Unlock()

		if startErr != nil {
			s.logger.Error("failed to restart the server", zap.Error(startErr))
		} else {
			s.recorder.ChildRestarted()
		}
	}
}

// sampleResourcesLoop periodically samples pid's resource usage and
// reports it to the recorder, a supplemented feature beyond the distilled
// protocol (see resources.go). It stops when ctx is cancelled, which
// happens as soon as the child exits.
func (s *Supervisor) sampleResourcesLoop(ctx context.Context, pid int) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage, err := sampleResources(ctx, int32(pid))
			if err != nil {
				s.logger.Debug("failed to sample child resource usage", zap.Error(err))
				continue
			}
			s.recorder.SetChildResources(usage.CPUPercent, usage.MemoryRSSMB, usage.NumThreads)
		}
	}
}
