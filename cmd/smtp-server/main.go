// Package main is the entry point for the SMTP dispatch server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mqln/mcp-server-smtp/internal/audit"
	"github.com/mqln/mcp-server-smtp/internal/config"
	"github.com/mqln/mcp-server-smtp/internal/dispatch"
	"github.com/mqln/mcp-server-smtp/internal/relay"
	"github.com/mqln/mcp-server-smtp/internal/server"
	"github.com/mqln/mcp-server-smtp/internal/template"
	servertls "github.com/mqln/mcp-server-smtp/internal/tls"
	"github.com/mqln/mcp-server-smtp/internal/transport"
	smtptransport "github.com/mqln/mcp-server-smtp/internal/transport/smtp"
	sestransport "github.com/mqln/mcp-server-smtp/internal/transport/ses"
	stdouttransport "github.com/mqln/mcp-server-smtp/internal/transport/stdout"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	// Relay configuration problems are fatal at startup, not on first use.
	registry, err := relay.Load(cfg.Relays)
	if err != nil {
		slog.Error("failed to load relay configuration", "error", err)
		os.Exit(1)
	}

	templates := template.NewStore(templateDefs(cfg))

	log, err := audit.Open(cfg.Audit.Dir)
	if err != nil {
		slog.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}

	selector := transport.NewSelector(
		smtptransport.New(),
		sestransport.New(),
		stdouttransport.New(),
	)

	dispatcher := dispatch.NewDispatcher(registry, templates, selector, log)
	engine := dispatch.NewEngine(dispatcher, cfg.Bulk.BatchSize, cfg.Bulk.DelayMs)

	opts := server.Options{
		Addr:   cfg.Server.Listen,
		APIKey: cfg.Server.APIKey,
	}
	if cfg.TLS.Enabled {
		tlsConfig, err := servertls.LoadOrGenerate(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
		opts.TLSConfig = tlsConfig
	}

	srv := server.New(opts, registry, dispatcher, engine, log)

	slog.Info("starting smtp dispatch server",
		"listen", cfg.Server.Listen,
		"relays", len(cfg.Relays),
		"default_relay", registry.Default().ID,
		"templates", len(templates.IDs()),
		"audit_log", log.Path(),
		"auth_enabled", cfg.Server.APIKey != "",
		"tls_enabled", cfg.TLS.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("smtp dispatch server stopped")
}

// loadConfig loads configuration from the specified path (YAML + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// templateDefs converts configured templates to store definitions.
func templateDefs(cfg *config.Config) map[string]template.Definition {
	defs := make(map[string]template.Definition, len(cfg.Templates))
	for id, t := range cfg.Templates {
		defs[id] = template.Definition{Subject: t.Subject, Body: t.Body}
	}
	return defs
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
