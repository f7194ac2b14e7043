package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/sentid/internal/api"
	"github.com/kalambet/sentid/internal/config"
	"github.com/kalambet/sentid/internal/inference"
	"github.com/kalambet/sentid/internal/logging"
	"github.com/kalambet/sentid/internal/metrics"
	"github.com/kalambet/sentid/internal/ollama"
	"github.com/kalambet/sentid/internal/prediction"
	"github.com/kalambet/sentid/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runServer(cfg)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the prediction tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runMCP(cfg)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
}

// app is the process-wide state shared by every request.
type app struct {
	log     *logrus.Logger
	store   *storage.Store
	service prediction.Service
	metrics *metrics.Metrics
}

func (a *app) Close() error {
	return a.store.Close()
}

// labelSet picks the configured override, or the default set for the variant.
func labelSet(cfg config.Config) []string {
	if labels := cfg.LabelOverride(); labels != nil {
		return labels
	}
	return inference.DefaultLabels(cfg.Model.Variant == config.VariantEmotions)
}

func newClassifier(cfg config.Config, labels []string) inference.Classifier {
	if cfg.Model.Backend == config.BackendOllama {
		return inference.NewOllama(ollama.New(cfg.Ollama.BaseURL), cfg.Ollama.Model, labels)
	}
	hf := inference.HuggingFaceConfig{
		BaseURL: cfg.HuggingFace.BaseURL,
		Model:   cfg.ModelID(),
		Token:   cfg.HuggingFace.Token,
		Timeout: cfg.HuggingFace.Timeout,
	}
	if cfg.Model.Variant == config.VariantEmotions {
		hf.TopK = len(labels)
	}
	return inference.NewHuggingFace(hf)
}

// newApp opens the store and applies migrations, then wires the classifier
// and the prediction service. Nothing listens yet.
func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger, progress io.Writer) (*app, error) {
	labels := labelSet(cfg)
	classifier := newClassifier(cfg, labels)
	if err := inference.EnsureReady(ctx, classifier, progress); err != nil {
		return nil, fmt.Errorf("preparing model: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Path, cfg.Model.Variant, storage.WithLogger(logging.NewGormLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	m, err := metrics.New()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	adapter := inference.NewAdapter(classifier, labels)
	svc, err := prediction.New(adapter, store,
		prediction.WithLogger(log), prediction.WithMetrics(m))
	if err != nil {
		store.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"variant": cfg.Model.Variant,
		"backend": cfg.Model.Backend,
		"model":   modelName(cfg),
		"labels":  strings.Join(adapter.Labels(), ","),
		"store":   cfg.Storage.Path,
	}).Info("model and store ready")

	return &app{log: log, store: store, service: svc, metrics: m}, nil
}

func modelName(cfg config.Config) string {
	if cfg.Model.Backend == config.BackendOllama {
		return cfg.Ollama.Model
	}
	return cfg.ModelID()
}

// initSentry enables error reporting when a DSN is configured. The returned
// func flushes pending events.
func initSentry(cfg config.Config) (func(), error) {
	if cfg.Sentry.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Release:          "sentid@" + version,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func runServer(cfg config.Config) error {
	log, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	log.WithField("version", version).Info("sentid starting")

	flush, err := initSentry(cfg)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("closing storage")
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr(), err)
	}
	return serve(ctx, a, ln)
}

// serve runs the HTTP API on ln until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, a *app, ln net.Listener) error {
	srv := &http.Server{
		Handler: api.NewHandler(api.Deps{
			Service: a.service,
			Store:   a.store,
			Metrics: a.metrics,
			Log:     a.log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", ln.Addr().String()).Info("sentid listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(cfg config.Config) error {
	// stdout carries the protocol; logs go to stderr only.
	log, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	flush, err := initSentry(cfg)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.service, Log: log, Version: version})
	log.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
