package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/quizsync/internal/cacheproxy"
	"github.com/at-ishikawa/quizsync/internal/config"
	"github.com/at-ishikawa/quizsync/internal/database"
	"github.com/at-ishikawa/quizsync/internal/datasync"
	"github.com/at-ishikawa/quizsync/internal/localstore"
	"github.com/at-ishikawa/quizsync/internal/remote"
	"github.com/at-ishikawa/quizsync/internal/remote/firebase"
	"github.com/at-ishikawa/quizsync/internal/remote/sqlstore"
	"github.com/at-ishikawa/quizsync/internal/scheduler"
	"github.com/at-ishikawa/quizsync/internal/server"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTelEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "tracing is disabled", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to flush traces", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Proxy.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "Starting proxy", "addr", cfg.Proxy.Listen, "upstream", cfg.Proxy.Upstream)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe() > %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.scheduler.Start(gctx)
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown() > %w", err)
		}
		return nil
	})
	return g.Wait()
}

func loadConfig() (*config.Config, error) {
	configFile := os.Getenv("QUIZSYNC_CONFIG")
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

// app holds everything the proxy serves and has to close on shutdown.
type app struct {
	handler   http.Handler
	proxy     *cacheproxy.Proxy
	scheduler *scheduler.Scheduler
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	emitter := telemetry.Default()

	store, err := localstore.Open(ctx, cfg.Storage.Path, localstore.WithQuota(cfg.Storage.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("localstore.Open() > %w", err)
	}
	a.closers = append(a.closers, store.Close)

	var storage cacheproxy.Storage = cacheproxy.NewMemoryStorage()
	if cfg.Proxy.CacheStorage == "sqlite" {
		sqliteStorage, err := cacheproxy.OpenSQLiteStorage(ctx, cfg.Proxy.CachePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("cacheproxy.OpenSQLiteStorage() > %w", err)
		}
		a.closers = append(a.closers, sqliteStorage.Close)
		storage = sqliteStorage
	}

	a.proxy, err = cacheproxy.New(cfg.Proxy, storage, cacheproxy.WithEmitter(emitter))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("cacheproxy.New() > %w", err)
	}
	a.proxy.Install(ctx)
	if err := a.proxy.Activate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("proxy.Activate() > %w", err)
	}

	var reader remote.Reader
	switch cfg.Remote.Driver {
	case "mysql":
		db, err := database.Open(cfg.Remote.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database.Open() > %w", err)
		}
		a.closers = append(a.closers, db.Close)
		reader = sqlstore.NewStore(db)
	default:
		reader = firebase.NewClient(firebase.Config{
			BaseURL:   cfg.Remote.Firebase.BaseURL,
			AuthToken: cfg.Remote.Firebase.AuthToken,
			Timeout:   cfg.Installer.Timeout,
		})
	}
	collector := datasync.NewCollector(reader,
		datasync.WithRetryPolicy(datasync.NewRetryPolicy(cfg.Sync.Retry)),
		datasync.WithSubjectMatcher(datasync.NewSubjectMatcher(cfg.Sync.FallbackToAllSubjects)),
		datasync.WithQuestionBatchSize(cfg.Sync.QuestionBatchSize),
		datasync.WithWordMeanings(cfg.Sync.IncludeWordMeanings),
		datasync.WithEmitter(emitter),
	)
	a.scheduler, err = scheduler.New(cfg.Sync.Schedule, store, datasync.NewEngine(collector, store, emitter))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("scheduler.New() > %w", err)
	}

	mux := http.NewServeMux()
	server.NewAdminHandler(a.proxy, store).Mount(mux)
	mux.Handle("/", a.proxy)

	a.handler = corsMiddleware(cfg.Proxy.Upstream, h2c.NewHandler(mux, &http2.Server{}))
	return a, nil
}

// Close stops the scheduler, waits for background cache writes and closes the stores.
func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.proxy != nil {
		a.proxy.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close", "error", err)
		}
	}
	a.closers = nil
}

func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
