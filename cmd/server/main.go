package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"directory/internal/adapters/auth"
	emailPkg "directory/internal/adapters/email"
	web "directory/internal/adapters/http"
	"directory/internal/adapters/http/perf"
	"directory/internal/adapters/metrics"
	photoAdapter "directory/internal/adapters/photo"
	"directory/internal/adapters/storage"
	auditStore "directory/internal/adapters/storage/audit"
	rosterStore "directory/internal/adapters/storage/roster"
	settingsStore "directory/internal/adapters/storage/settings"
	"directory/internal/application/directory"
	"directory/internal/application/orchestrators"
	"directory/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Performance instrumentation: wrap DB and source with timing
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)
	settings := settingsStore.NewSQLiteStore(timedDB)
	audit := auditStore.NewSQLiteStore(timedDB)
	m := metrics.New()

	src, err := rosterStore.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	if cfg.Source.Driver == config.DriverMemory {
		n, err := orchestrators.ExecuteSeedRoster(ctx, orchestrators.SeedRosterDeps{Source: src})
		if err != nil {
			return err
		}
		slog.Info("roster_seeded", "rows", n)
	}
	timed := rosterStore.NewTimedSource(src, collector, m, cfg.SlowSourceMs)

	roster := directory.NewStore(timed, cfg.IdentityField)
	if snap, err := roster.Load(ctx); err != nil {
		// the dashboard offers a retry; the server still starts
		slog.Error("roster_initial_load_failed", "driver", cfg.Source.Driver, "error", err.Error())
	} else {
		m.SetRecords(len(snap.Records))
	}

	fetcher := photoAdapter.NewHTTPFetcher(photoAdapter.HTTPOptions{
		Timeout:   cfg.Photo.Timeout,
		MaxBytes:  cfg.Photo.MaxBytes,
		Thumbnail: cfg.Photo.ThumbnailPx,
	})
	photos := photoAdapter.NewLoader(fetcher, cfg.Photo.Timeout)

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender_configured", "provider", "resend", "recipients", len(cfg.NotifyTo))
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.Production() && len(cfg.NotifyTo) > 0 {
			slog.Warn("email_delivery_disabled", "reason", "DIRECTORY_RESEND_KEY is not set")
		}
	}

	gate, err := auth.NewBcryptGate(cfg.AddStaffPasswordHash)
	if err != nil {
		return err
	}
	if !gate.Enabled() {
		slog.Warn("add_staff_disabled", "reason", "DIRECTORY_ADD_STAFF_PASSWORD_HASH is not set")
	}

	var csrfKey []byte
	if cfg.CSRFKey != "" {
		if csrfKey, err = cfg.CSRFKeyBytes(); err != nil {
			return err
		}
	}

	srv, err := web.NewServer(ctx, web.Deps{
		Roster:        roster,
		Settings:      settings,
		Audit:         audit,
		Gate:          gate,
		Photos:        photos,
		Metrics:       m,
		Collector:     collector,
		Notify:        orchestrators.Notify{Sender: sender, To: cfg.NotifyTo},
		RequireFilter: cfg.RequireFilter,
		SourceName:    cfg.Source.Driver,
		AppVersion:    version,
	}, web.Options{
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.Production(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.SlowRequestMs,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "driver", cfg.Source.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
