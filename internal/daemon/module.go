// Package daemon composes the session daemon with fx: it dials the automation
// host, bridges its events onto the bus and archives them.
package daemon

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/matheus3301/wppweb/internal/bridge"
	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/config"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/grpchost"
	"github.com/matheus3301/wppweb/internal/lock"
	"github.com/matheus3301/wppweb/internal/logging"
	"github.com/matheus3301/wppweb/internal/media"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/session"
	"github.com/matheus3301/wppweb/internal/status"
	"github.com/matheus3301/wppweb/internal/store"
	intsync "github.com/matheus3301/wppweb/internal/sync"
	"github.com/matheus3301/wppweb/internal/wa"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	// HostAddress overrides the configured host address.
	HostAddress string
	Debug       bool

	// Optional overrides for testing; zero values use the defaults.
	Config *config.Config
	Host   host.Host
	Logger *zap.Logger
	QROut  io.Writer
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideMetrics,
			provideLock,
			provideStore,
			provideHost,
			provideClient,
			provideBridge,
			provideSyncEngine,
			provideMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	level := zapcore.InfoLevel
	if p.Debug {
		level = zapcore.DebugLevel
	}
	return logging.New(session.LogPath(p.SessionName), p.SessionName, level)
}

func provideBus(m *metrics.Metrics) *bus.Bus {
	b := bus.New()
	m.WatchBusDrops(b.Dropped)
	return b
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so that two daemons never migrate the same file.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.ArchiveDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideHost(p Params, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (host.Host, error) {
	if p.Host != nil {
		return metrics.Instrument(p.Host, m), nil
	}
	target := p.HostAddress
	if target == "" {
		target = cfg.Host.Address
	}
	if target == "" {
		target = session.HostTarget(p.SessionName)
	}
	logger.Info("dialing automation host", zap.String("target", target))
	c, err := grpchost.Dial(target, logger.Named("host"))
	if err != nil {
		return nil, err
	}
	return metrics.Instrument(c, m), nil
}

func provideClient(h host.Host, b *bus.Bus, machine *status.Machine, cfg *config.Config, db *store.DB, m *metrics.Metrics, logger *zap.Logger) (*wa.Client, error) {
	creds, err := db.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return wa.New(h, b, machine, logger.Named("client"), wa.Options{
		HistoryLimit: cfg.History.DefaultLimit,
		Media: media.Policy{
			MaxAttempts:   cfg.Media.MaxAttempts,
			Delay:         cfg.Media.RetryDelay.Duration,
			RemoteRetries: cfg.Media.RemoteRetries,
		},
		Session: creds,
		Metrics: m,
	}), nil
}

func provideBridge(h host.Host, machine *status.Machine, b *bus.Bus, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *bridge.Bridge {
	return bridge.New(h, machine, b, bridge.Options{
		BufferOutsideReady: cfg.Bridge.BufferOutsideReady,
		BufferSize:         cfg.Bridge.BufferSize,
	}, m, logger.Named("bridge"))
}

func provideSyncEngine(p Params, db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	qr := p.QROut
	if qr == nil {
		qr = os.Stderr
	}
	return intsync.NewEngine(db, b, qr, logger.Named("sync"))
}

func provideMetricsServer(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*MetricsServer, error) {
	return NewMetricsServer(cfg.Metrics.Listen, m, logger)
}

type lifecycleDeps struct {
	fx.In

	Config  *config.Config
	Lock    *lock.Lock
	Store   *store.DB
	Host    host.Host
	Client  *wa.Client
	Bridge  *bridge.Bridge
	Engine  *intsync.Engine
	Metrics *MetricsServer
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, stop := context.WithCancel(context.Background())
			cancel = stop

			// The engine subscribes before the bridge publishes anything.
			d.Engine.Start(ctx)
			restoreSession(startCtx, d.Client, d.Logger)

			if limit := d.Config.History.BackfillLimit; limit > 0 {
				ready, unsub := d.Client.Subscribe(bus.KindReady, 1)
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer unsub()
					backfill(ctx, ready, d.Client, d.Engine, limit, d.Logger.Named("backfill"))
				}()
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.Bridge.Run(ctx); err != nil && ctx.Err() == nil {
					d.Logger.Error("bridge stopped", zap.Error(err))
				}
			}()

			go func() {
				if err := d.Metrics.Start(); err != nil {
					d.Logger.Error("metrics server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			d.Engine.Stop()
			d.Client.Close()
			if err := d.Host.Close(); err != nil {
				d.Logger.Warn("error closing host", zap.Error(err))
			}
			d.Metrics.Stop(ctx)
			if err := d.Store.Close(); err != nil {
				d.Logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			return nil
		},
	})
}

// restoreSession offers the archived credentials to the host. A refusal or a
// failure is not fatal: the host falls back to pairing.
func restoreSession(ctx context.Context, client *wa.Client, logger *zap.Logger) {
	if len(client.Session()) == 0 {
		return
	}
	logger.Info("restoring stored session credentials")
	ok, err := client.RestoreSession(ctx)
	switch {
	case err != nil:
		logger.Warn("session restore failed", zap.Error(err))
	case !ok:
		logger.Warn("host declined stored credentials")
	}
}
