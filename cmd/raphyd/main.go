// Command raphyd is the daemon: it supervises the Java game-server child
// process and exposes it over a Unix-domain socket and TCP, advertising
// itself via mDNS and publishing Prometheus metrics. It grounds
// odin-ws-server-3's cmd/odin-ws/main.go for its overall shape: load
// config, build the logger, wire every component together, run an HTTP
// server for metrics alongside the main listeners, and shut down on
// SIGINT/SIGTERM within a bounded deadline.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/config"
	"github.com/ALinuxPerson/raphy/internal/coordinator"
	"github.com/ALinuxPerson/raphy/internal/discovery"
	"github.com/ALinuxPerson/raphy/internal/logging"
	"github.com/ALinuxPerson/raphy/internal/metrics"
	"github.com/ALinuxPerson/raphy/internal/network"
	"github.com/ALinuxPerson/raphy/internal/protocol"
	"github.com/ALinuxPerson/raphy/internal/supervisor"
)

func main() {
	settings, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	if err := run(settings, logger); err != nil {
		logger.Fatal("daemon exited with an error", zap.Error(err))
	}
}

func run(settings config.Settings, logger *zap.Logger) error {
	configPath, err := protocol.ResolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to resolve the configuration path: %w", err)
	}

	cfg, ok, err := protocol.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load the persisted configuration: %w", err)
	}
	var initialConfig *protocol.Config
	if ok {
		initialConfig = &cfg
	}
	logger.Info("resolved configuration path", zap.String("path", configPath), zap.Bool("found", ok))

	reg := metrics.NewRegistry(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(logger, initialConfig, reg)

	global := make(chan protocol.ServerMessage, 256)
	coord := coordinator.New(logger, sup, configPath, stop, reg)
	actor := network.NewActor(logger, coord, global, reg)

	go actor.Run(ctx)
	go coord.Run(ctx, global)

	newConns := actor.NewConns()
	unixErrCh := make(chan error, 1)
	go func() {
		// ListenUnix blocks until ctx is cancelled, unlike ListenTCP.
		unixErrCh <- network.ListenUnix(ctx, logger, config.UnixSocketPath, newConns)
	}()

	port, err := network.ListenTCP(ctx, logger, settings.TCPAddress, newConns)
	if err != nil {
		return fmt.Errorf("failed to start the tcp listener: %w", err)
	}

	advertiser, err := discovery.Advertise(logger, int(port))
	if err != nil {
		logger.Warn("failed to advertise over mdns, continuing without it", zap.Error(err))
	} else {
		defer advertiser.Shutdown()
	}

	metricsErrCh := make(chan error, 1)
	go func() {
		metricsErrCh <- runMetricsServer(ctx, logger, settings.MetricsListenAddr, reg)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-metricsErrCh:
		if err != nil {
			logger.Error("metrics http server error", zap.Error(err))
		}
		stop()
	case err := <-unixErrCh:
		if err != nil {
			logger.Error("unix-domain listener exited unexpectedly", zap.Error(err))
		}
		stop()
	}

	deadline := time.Duration(settings.ShutdownDeadlineSeconds) * time.Second
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	shutdownTimer := time.NewTimer(deadline)
	defer shutdownTimer.Stop()

	sup.Stop()
	waitForChildExit(logger, sup, shutdownTimer)

	return nil
}

// waitForChildExit gives the supervised child up to the daemon's shutdown
// deadline to exit cleanly after Stop has been signalled, matching
// spec.md §5's bounded shutdown window. It polls State() for the
// transition back to Stopped; if the deadline elapses first it calls Stop
// a second time, which the Supervisor escalates to SIGKILL, and returns
// without waiting further.
func waitForChildExit(logger *zap.Logger, sup *supervisor.Supervisor, deadline *time.Timer) {
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-poll.C:
			if sup.State().Kind == protocol.ServerStopped {
				return
			}
		case <-deadline.C:
			logger.Warn("shutdown deadline elapsed, escalating to a forceful stop")
			sup.Stop()
			return
		}
	}
}

func runMetricsServer(ctx context.Context, logger *zap.Logger, addr string, reg *metrics.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics http server starting", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics http server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
