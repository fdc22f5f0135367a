package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/server"
)

var servePort int

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparator HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv, closeFn, err := initServer(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			return srv.SweepSessions(gctx, sweepInterval)
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// initServer wires the store, catalog, engine and token issuer into a server.
func initServer(ctx context.Context) (*server.Server, func(), error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}

	cat, err := initCatalog()
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	if err != nil {
		closeFn()
		return nil, nil, eris.Wrap(err, "init token issuer")
	}

	srv, err := server.New(server.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		SessionIdleTTL: time.Duration(cfg.Server.SessionIdleMins) * time.Minute,
		QuotaLimit:     cfg.Quota.FreeLimit,
		AnalysisDelay:  cfg.Comparison.AnalysisDelay(),
	}, server.Deps{
		Catalog: cat,
		Store:   st,
		Engine:  newEngine(),
		Issuer:  issuer,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return srv, closeFn, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
