package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanpama/relaygraph/internal/config"
	"github.com/hanpama/relaygraph/internal/demo"
	"github.com/hanpama/relaygraph/internal/eventbus"
	"github.com/hanpama/relaygraph/internal/logging"
	"github.com/hanpama/relaygraph/internal/otel"
	"github.com/hanpama/relaygraph/internal/server"
	"github.com/hanpama/relaygraph/internal/store/sqlstore"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg)
		},
	}
	fs := cmd.Flags()
	fs.String("addr", "", "HTTP listen address")
	fs.String("db", "", "SQLite database path")
	fs.Bool("pretty", false, "pretty-print JSON responses")
	fs.StringSlice("metadata-header", nil, "HTTP header exposed to resolvers; repeatable")
	fs.String("otel-endpoint", "", "OTLP/gRPC collector endpoint")
	for flag, key := range map[string]string{
		"addr":            "server.addr",
		"db":              "database.path",
		"pretty":          "server.pretty",
		"metadata-header": "server.metadata_headers",
		"otel-endpoint":   "otel.endpoint",
	} {
		_ = c.v.BindPFlag(key, fs.Lookup(flag))
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	defer logging.Subscribe(bus, log)()

	shutdown, err := otel.Setup(bus, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	st, err := sqlstore.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx, demo.Widget); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	app, err := demo.New(st, demo.Options{
		DefaultPageSize: cfg.GraphQL.DefaultPageSize,
		Introspection:   cfg.GraphQL.Introspection,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	h, err := server.New(app.Runtime, app.Schema, serverOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.WithField("addr", cfg.Server.Addr).Info("GraphQL server listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func serverOptions(cfg *config.Config) []server.Option {
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if cfg.Server.MaxBodyBytes > 0 {
		opts = append(opts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	if cfg.Auth.JWTSecret != "" {
		opts = append(opts, server.WithAuthenticator(server.NewAuthenticator([]byte(cfg.Auth.JWTSecret))))
	}
	return opts
}
