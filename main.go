package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Gere2/AIGNITE/internal/api"
	"github.com/Gere2/AIGNITE/internal/assess"
	"github.com/Gere2/AIGNITE/internal/config"
	"github.com/Gere2/AIGNITE/internal/logging"
	"github.com/Gere2/AIGNITE/internal/notify"
	"github.com/Gere2/AIGNITE/internal/registry"
	"github.com/Gere2/AIGNITE/internal/server"
	"github.com/Gere2/AIGNITE/internal/storage"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $AIGNITE_CONFIG or config.yaml)")
	transport := flag.String("transport", "", "Transport mode: stdio or http")
	port := flag.String("port", "", "HTTP port (only used with --transport http)")
	dataDir := flag.String("data-dir", "", "Directory for the SQLite database")
	databaseURL := flag.String("database-url", "", "PostgreSQL DSN; SQLite in --data-dir is used when empty")
	modelPath := flag.String("model", "", "Model artifact produced by the training job")
	vocabPath := flag.String("vocabulary", "", "Vocabulary YAML (embedded default when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}
	override(&cfg.Transport, *transport)
	override(&cfg.Port, *port)
	override(&cfg.DataDir, *dataDir)
	override(&cfg.DatabaseURL, *databaseURL)
	override(&cfg.ModelPath, *modelPath)
	override(&cfg.VocabularyPath, *vocabPath)
	if err := cfg.Validate(); err != nil {
		fatal("Invalid config", err)
	}

	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	if cfg.Source != "" {
		logger.Info("config loaded", "path", cfg.Source)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The artifact is loaded once; a new model needs a restart.
	reg, err := registry.Load(cfg.ModelPath, registry.Options{ONNXRuntimePath: cfg.ONNXRuntimePath})
	if err != nil {
		fatal("Failed to load model artifact", err)
	}
	defer reg.Close()
	info := reg.Info()
	logger.Info("model loaded", "path", info.Path, "version", info.Version, "kind", info.ModelKind, "columns", info.ColumnCount)

	voc, err := vocab.Load(cfg.VocabularyPath)
	if err != nil {
		fatal("Failed to load vocabulary", err)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		fatal("Failed to open prediction store", err)
	}
	defer store.Close()
	backend := "sqlite"
	if storage.IsPostgresDSN(cfg.DatabaseURL) {
		backend = "postgres"
	}
	logger.Info("prediction store opened", "backend", backend)

	var pub notify.Publisher = notify.Nop{}
	if cfg.RedisURL != "" {
		rp, err := notify.NewRedis(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			logger.Warn("event publishing disabled", "error", err)
		} else {
			pub = rp
			logger.Info("publishing assessment events", "channel", rp.Channel())
		}
	}
	defer pub.Close()

	svc := assess.New(reg, voc, store, assess.Options{Publisher: pub, Logger: logger})

	// Build the MCP server with all tools registered
	srv := server.New(svc, cfg.ListLimit)

	switch cfg.Transport {
	case "stdio":
		logger.Info("AIGNITE MCP server starting (stdio)")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			fatal("Server error", err)
		}
	case "http":
		router := api.NewRouter(api.Options{
			Service:     svc,
			MCP:         srv,
			BearerToken: cfg.BearerToken,
			CORSOrigins: cfg.CORSAllowedOrigins,
			ListLimit:   cfg.ListLimit,
			Logger:      logger,
		})
		httpServer := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			httpServer.Shutdown(shutdownCtx)
		}()

		logger.Info("AIGNITE server listening", "addr", httpServer.Addr, "auth", cfg.BearerToken != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server error", err)
		}
	}
}

// override replaces dst with a flag value that was actually given.
func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
