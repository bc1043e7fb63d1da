package daemon

import (
	"context"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/api"
	"github.com/sakhihub/sakhi/internal/auth"
	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/config"
	"github.com/sakhihub/sakhi/internal/connectivity"
	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/health"
	"github.com/sakhihub/sakhi/internal/lock"
	"github.com/sakhihub/sakhi/internal/logging"
	"github.com/sakhihub/sakhi/internal/outbox"
	"github.com/sakhihub/sakhi/internal/profile"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/safety"
	"github.com/sakhihub/sakhi/internal/schemes"
	"github.com/sakhihub/sakhi/internal/status"
	"github.com/sakhihub/sakhi/internal/store"
	intsync "github.com/sakhihub/sakhi/internal/sync"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
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
			provideLock,
			provideStore,
			provideAuthManager,
			provideBackendClient,
			provideRealtimeClient,
			provideMonitor,
			provideSyncEngine,
			provideSender,
			provideGameService,
			provideHealthService,
			provideSchemeService,
			provideSafetyService,
			provideRouter,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
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

func provideAuthManager(db *store.DB, logger *zap.Logger) *auth.Manager {
	return auth.NewManager(db, logger)
}

func provideBackendClient(cfg *config.Config, a *auth.Manager, logger *zap.Logger) *backend.Client {
	return backend.New(cfg.BackendURL, a.Token, logger)
}

func provideRealtimeClient(cfg *config.Config, a *auth.Manager, b *bus.Bus, logger *zap.Logger) *realtime.Client {
	return realtime.New(realtime.Config{
		URL:         cfg.RealtimeURL,
		Token:       a.Token(),
		UserID:      a.UserID(),
		MaxAttempts: cfg.ReconnectAttempts,
		RetryDelay:  cfg.ReconnectDelay,
	}, b, logger)
}

func provideMonitor(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(connectivity.HTTPProbe(cfg.ProbeURL, nil), cfg.ProbeInterval, b, logger)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, bc *backend.Client, a *auth.Manager, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, bc, a.UserID(), logger)
}

func provideSender(db *store.DB, rt *realtime.Client, mon *connectivity.Monitor, b *bus.Bus, a *auth.Manager, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, outbox.NewRealtimeDispatcher(rt), mon, b, a.UserID(), logger)
}

func provideGameService(db *store.DB, b *bus.Bus, logger *zap.Logger) *gamification.Service {
	return gamification.NewService(db, b, logger)
}

func provideHealthService(db *store.DB, bc *backend.Client, logger *zap.Logger) *health.Service {
	return health.NewService(db, bc, logger)
}

func provideSchemeService(bc *backend.Client, logger *zap.Logger) *schemes.Service {
	return schemes.NewService(bc, logger)
}

func provideSafetyService(db *store.DB, rt *realtime.Client, b *bus.Bus, logger *zap.Logger) *safety.Service {
	return safety.NewService(db, safety.NewRealtimeNotifier(rt), b, logger)
}

func provideRouter(
	p Params,
	db *store.DB,
	b *bus.Bus,
	machine *status.Machine,
	mon *connectivity.Monitor,
	a *auth.Manager,
	bc *backend.Client,
	rt *realtime.Client,
	sender *outbox.Sender,
	game *gamification.Service,
	healthSvc *health.Service,
	schemeSvc *schemes.Service,
	safetySvc *safety.Service,
	logger *zap.Logger,
) http.Handler {
	return api.NewRouter(api.Handlers{
		Auth:      api.NewAuthHandler(a, bc, game, b, logger),
		Chat:      api.NewChatHandler(db, sender, rt, logger),
		Safety:    api.NewSafetyHandler(safetySvc, game, logger),
		Game:      api.NewGameHandler(game, logger),
		Health:    api.NewHealthHandler(healthSvc, game, logger),
		Schemes:   api.NewSchemeHandler(schemeSvc, game, logger),
		Community: api.NewCommunityHandler(db, bc, game, b, logger),
		Market:    api.NewMarketHandler(db, bc, game, logger),
		Status:    api.NewStatusHandler(p.ProfileName, machine, mon, rt, a, db, logger),
		Stream:    api.NewStreamHandler(b, logger),
	})
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	rt *realtime.Client,
	mon *connectivity.Monitor,
	engine *intsync.Engine,
	sender *outbox.Sender,
	machine *status.Machine,
	a *auth.Manager,
	b *bus.Bus,
	logger *zap.Logger,
) {
	super := newSupervisor(machine, rt, engine, sender, a, b, logger)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())
			mon.Start(context.Background())
			sender.Start(context.Background())
			super.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			if a.LoggedIn() {
				_ = machine.Transition(status.Connecting)
				go func() {
					if err := rt.Connect(context.Background()); err != nil {
						logger.Error("auto-connect failed", zap.Error(err))
						_ = machine.Transition(status.Offline)
					}
				}()
			} else {
				logger.Info("no session found, auth required")
				_ = machine.Transition(status.AuthRequired)
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			super.Stop()
			sender.Stop()
			engine.Stop()
			mon.Stop()
			_ = rt.Close()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
