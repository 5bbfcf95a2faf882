package postybirbserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/api"
	"github.com/mycelian/postybirb/internal/broadcast"
	"github.com/mycelian/postybirb/internal/config"
	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/factory"
	"github.com/mycelian/postybirb/internal/filestore"
	"github.com/mycelian/postybirb/internal/health"
	"github.com/mycelian/postybirb/internal/logger"
	"github.com/mycelian/postybirb/internal/services"
	"github.com/mycelian/postybirb/internal/store"
	"github.com/mycelian/postybirb/internal/watcher"
	"github.com/mycelian/postybirb/internal/websites"
)

// Run starts the postybirb server and blocks until shutdown or error.
func Run() error {
	log := logger.New("postybirb-server")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log = logger.WithLevel(log, cfg.LogLevel)

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	return serve(ctx, cfg, log, nil)
}

// serve wires every component and serves until ctx ends. A non-nil ready receives the
// bound address once the listener is up.
func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger, ready chan<- string) error {
	bus := events.NewBus(log, cfg.BusCallbackTimeout())

	st, err := factory.NewStore(ctx, cfg, bus, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}
	defer func() { _ = st.Close() }()

	reg, err := factory.NewRegistry(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Destination registry failed")
		return err
	}

	svc := newServices(st, reg, cfg, log)
	startup, err := svc.settings.StartupOptions()
	if err != nil {
		return err
	}
	if _, err := svc.settings.EnsureDefault(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("Default settings bootstrap failed")
		return err
	}

	hub := broadcast.NewHub(logger.Component(log, "broadcast"))
	defer hub.Close()
	unwatch := broadcast.WatchStore(hub, bus, st)
	defer unwatch()

	runner := watcher.New(svc.watchers, svc.subs, svc.files, watcher.Options{
		Interval:    cfg.WatcherInterval(),
		Concurrency: cfg.WatcherConcurrency,
		LocksDir:    cfg.LocksDir(),
	}, log)
	go runner.Run(ctx)

	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	router := api.NewRouter(api.Deps{
		Submissions: svc.subs,
		Files:       svc.files,
		Options:     svc.options,
		Accounts:    svc.accounts,
		Watchers:    svc.watchers,
		Settings:    svc.settings,
		Posts:       svc.posts,
		Registry:    reg,
		Hub:         hub,
		Health: func() (bool, map[string]bool) {
			return svcHealth.IsHealthy(), svcHealth.Components()
		},
		Log: logger.Component(log, "http"),
	})

	addr := listenAddr(cfg, startup, log)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error().Stack().Err(err).Str("addr", addr).Msg("Listen failed")
		return err
	}
	server := newHTTPServer(ctx, router)
	errCh := serveHTTP(server, ln, log)
	if ready != nil {
		ready <- ln.Addr().String()
	}

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type serviceSet struct {
	subs     *services.SubmissionService
	files    *services.FileSubmissionService
	options  *services.WebsiteOptionService
	accounts *services.AccountService
	watchers *services.DirectoryWatcherService
	settings *services.SettingsService
	posts    *services.PostService
}

func newServices(st store.Store, reg *websites.Registry, cfg *config.Config, log zerolog.Logger) serviceSet {
	options := services.NewWebsiteOptionService(st, reg, log)
	subs := services.NewSubmissionService(st, filestore.New(cfg.FilesDir()), options, log)
	return serviceSet{
		subs:     subs,
		files:    services.NewFileSubmissionService(st, subs, log),
		options:  options,
		accounts: services.NewAccountService(st, reg, log),
		watchers: services.NewDirectoryWatcherService(st, log),
		settings: services.NewSettingsService(st, cfg.DataDir, services.StartupOptions{
			AppDataPath: cfg.DataDir,
			Port:        strconv.Itoa(cfg.HTTPPort),
		}, log),
		posts: services.NewPostService(st, options, reg, cfg.PostTimeout(), log),
	}
}

// listenAddr prefers the persisted startup port over the environment one.
func listenAddr(cfg *config.Config, startup services.StartupOptions, log zerolog.Logger) string {
	if startup.Port != "" && startup.Port != strconv.Itoa(cfg.HTTPPort) {
		if _, err := strconv.Atoi(startup.Port); err == nil {
			log.Info().Str("port", startup.Port).Msg("using port from startup options")
			return ":" + startup.Port
		}
	}
	return cfg.GetHTTPAddr()
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	checkers := []health.HealthChecker{
		store.NewStoreHealthChecker(st, log, probeTimeout),
		health.NewDataDirChecker(cfg.DataDir, log),
	}
	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	// No WriteTimeout: posts and websocket connections are long-lived.
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, ln net.Listener, log zerolog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("serve: %w", err)
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
