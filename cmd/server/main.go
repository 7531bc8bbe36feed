package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"warden/internal/api"
	"warden/internal/app"
	"warden/internal/config"
	internaldb "warden/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	writeDB, readDB, err := internaldb.OpenPair(cfg.DBPath, 0)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if cfg.PKIEnabled {
		routerCfg.ResolveCertificate = a.ResolveCertificate
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Handler.Router(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.PKIEnabled {
		tlsCfg, err := clientCertTLSConfig(cfg.ClientCAFile)
		if err != nil {
			return err
		}
		srv.TLSConfig = tlsCfg
	}

	// The activity sweep marks implants inactive once they miss their grace
	// window.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("*/5 * * * *", func() {
		if _, err := a.Implants.SweepInactive(ctx); err != nil {
			logger.Error("activity sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule activity sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			"addr", cfg.ListenAddr, "tls", cfg.HasTLS(), "pki", cfg.PKIEnabled,
			"auth_method", cfg.AuthMethod)
		var err error
		if cfg.HasTLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// clientCertTLSConfig asks clients for a certificate signed by the operator
// CA but does not require one; implants and password logins share the same
// listener. Unverified certificates are rejected at the handshake, so a CN
// that reaches the session layer is always a proven identity.
func clientCertTLSConfig(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read client CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("client CA bundle %s contains no certificates", caFile)
	}
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		ClientCAs:  pool,
		ClientAuth: tls.VerifyClientCertIfGiven,
	}, nil
}
