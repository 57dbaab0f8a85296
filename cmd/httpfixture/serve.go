package main

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"

	"http-fixture/application/http"
	"http-fixture/application/http/actor/server"
	"http-fixture/application/http/rest"
	"http-fixture/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	v := newViper(afero.NewOsFs())
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fixed routes and static files over TCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, afero.NewOsFs(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "configuration file (yaml, json or toml)")
	flags.String("addr", defaultAddr, "address to listen on")
	flags.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	flags.Duration("read-timeout", 0, "time allowed to read a request")
	flags.Bool("json-errors", false, "answer unmatched routes and failures with JSON")

	for key, flag := range map[string]string{
		"addr":         "addr",
		"log.level":    "log-level",
		"read_timeout": "read-timeout",
		"json_errors":  "json-errors",
	} {
		// Lookup never fails for flags defined above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func serve(ctx context.Context, cfg Config, fs afero.Fs, stderr io.Writer) error {
	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}

	opts := server.Options{
		ReadTimeout:     cfg.ReadTimeout,
		MaxHeaderLength: cfg.MaxHeaderLength,
		MaxBodyLength:   cfg.MaxBodyLength,
		Encode:          http.EncodeOptions{ServerName: cfg.ServerName},
	}

	if cfg.Trace.Stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stderr))
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to flush spans", "error", err)
			}
		}()
		opts.TracerProvider = tp
	}

	clk := clock.New()
	router := buildRouter(cfg, fs, logger, clk)

	lis, err := tcp.Listen(cfg.Addr)
	if err != nil {
		return err
	}
	defer lis.Close()

	srv := server.New(lis, router, logger.With("addr", lis.Addr()), clk, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	return g.Wait()
}

func buildRouter(cfg Config, fs afero.Fs, logger *slog.Logger, clk clock.Clock) *server.Router {
	router := server.NewRouter(fs)

	if cfg.JSONErrors {
		rest.NewServer(router, logger)
	}

	if cfg.CORS != nil {
		router.Use(server.CORS(cfg.CORS.Origin, cfg.CORS.Methods, cfg.CORS.Headers))
	}

	for _, s := range cfg.Static {
		router.ServeStatic(s.Prefix, s.Dir)
	}

	for _, route := range cfg.Routes {
		router.Handle(route.Method, route.Path, fixedResponse(route, clk))
	}

	return router
}

func fixedResponse(route RouteConfig, clk clock.Clock) server.HandleFunc {
	body := []byte(route.Body)
	names := slices.Sorted(maps.Keys(route.Headers))

	return func(*http.Request) *http.Response {
		if route.Delay > 0 {
			clk.Sleep(route.Delay)
		}

		res := http.NewResponse(route.Status)
		for _, name := range names {
			res.SetHeader(name, route.Headers[name])
		}
		if route.ContentType != "" {
			res.SetHeader("Content-Type", route.ContentType)
		}
		return res.SetBody(body)
	}
}
