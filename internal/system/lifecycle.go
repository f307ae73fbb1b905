package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/railboard/internal/api/rest"
	"github.com/KevinKickass/railboard/internal/api/websocket"
	"github.com/KevinKickass/railboard/internal/board"
	"github.com/KevinKickass/railboard/internal/config"
	"github.com/KevinKickass/railboard/internal/identity"
	"github.com/KevinKickass/railboard/internal/interfaces"
	"github.com/KevinKickass/railboard/internal/metrics"
	"github.com/KevinKickass/railboard/internal/seed"
	"github.com/KevinKickass/railboard/internal/session"
	"github.com/KevinKickass/railboard/internal/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config   *config.Config
	backend  syncer.Backend
	writer   *syncer.Writer
	session  *session.Session
	hub      *websocket.Hub
	registry *prometheus.Registry
	logger   *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager hydrates the board from backend. An empty backend is
// seeded from the configured seed file and the seed is written through.
func NewLifecycleManager(ctx context.Context, backend syncer.Backend, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	rows, err := backend.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate board: %w", err)
	}

	zone := cfg.Board.Zone
	seeded := false
	if len(rows) == 0 && cfg.Board.SeedPath != "" {
		loader, err := seed.NewLoader()
		if err != nil {
			return nil, err
		}
		f, err := loader.Load(cfg.Board.SeedPath)
		if err != nil {
			return nil, err
		}
		rows = f.Circuits
		if zone == "" {
			zone = f.Zone
		}
		seeded = true
		logger.Info("Board seeded", zap.String("path", cfg.Board.SeedPath), zap.Int("rows", len(rows)))
	} else {
		logger.Info("Board hydrated from backing store", zap.Int("rows", len(rows)))
	}

	store, err := board.NewStore(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := websocket.NewHub(logger)
	writer := syncer.NewWriter(backend, syncer.RetryPolicy{
		MaxRetries:      cfg.Sync.MaxRetries,
		InitialInterval: cfg.Sync.InitialInterval,
		MaxInterval:     cfg.Sync.MaxInterval,
		AttemptTimeout:  cfg.Sync.AttemptTimeout,
	}, logger)

	sess := session.New(store, writer, logger,
		session.WithZone(zone),
		session.WithEditMode(cfg.Board.EditModeDefault),
		session.WithBroadcaster(hub),
		session.WithMetrics(metrics.NewBoard(registry, zone)))
	writer.OnStatus(sess.HandleSyncStatus)
	hub.SetSnapshotProvider(sess)

	if seeded {
		for _, r := range rows {
			writer.EnqueueRow(r)
		}
		// Order positions can only be set on rows that already exist.
		if err := writer.Flush(ctx); err != nil {
			return nil, fmt.Errorf("failed to write seed rows: %w", err)
		}
		writer.EnqueueOrder(store.Order())
	}

	return &LifecycleManager{
		config:       cfg,
		backend:      backend,
		writer:       writer,
		session:      sess,
		hub:          hub,
		registry:     registry,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting RailBoard", zap.String("zone", lm.session.Zone()))

	go lm.hub.Run()

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("storage_backend", lm.config.Storage.Backend),
		zap.Bool("edit_mode", lm.session.EditMode()))

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	resolver := identity.NewResolver(lm.config.Auth.JWTSecret(), lm.config.Auth.EditorHeader)
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.hub, resolver, lm.registry)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var firstErr error

	// 1. Stop accepting requests
	if lm.restServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
			firstErr = fmt.Errorf("rest api shutdown failed: %w", err)
		}
		cancel()
	}

	// 2. Drain write-through queue
	if err := lm.writer.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if unsynced := lm.session.UnsyncedKeys(); len(unsynced) > 0 {
		lm.logger.Warn("Stopping with unsynced keys", zap.Strings("keys", unsynced))
	}

	// 3. Disconnect live clients
	lm.hub.Stop()

	if firstErr == nil {
		lm.logger.Info("Graceful shutdown completed")
	}
	return firstErr
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.stateMu.Unlock()
		lm.logger.Warn("Ignoring state change", zap.Error(err))
		return
	}
	lm.currentState = state
	lm.lastError = ""
	lm.stateMu.Unlock()

	lm.logger.Info("System state changed", zap.String("state", state.String()))
	lm.broadcastStatus()
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastError = err.Error()
	lm.stateMu.Unlock()

	lm.logger.Error("System error", zap.Error(err))
	lm.broadcastStatus()
}

func (lm *LifecycleManager) broadcastStatus() {
	lm.stateMu.RLock()
	data := newStatusData(lm.currentState, lm.lastError)
	lm.stateMu.RUnlock()

	lm.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, data))
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns the current system status
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	view := lm.session.Snapshot()
	return interfaces.SystemStatus{
		State:            lm.State().String(),
		Zone:             view.Zone,
		Backend:          lm.config.Storage.Backend,
		Circuits:         view.Counters.Circuits,
		UnsyncedKeys:     len(view.Unsynced),
		ConnectedClients: lm.hub.GetClientCount(),
		EditMode:         view.EditMode,
	}
}

// Session returns the board session
func (lm *LifecycleManager) Session() *session.Session {
	return lm.session
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
