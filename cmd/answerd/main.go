// Answerd is a grounded question-answering daemon.
//
// It answers natural-language questions over an ingested document corpus:
// retrieval is decided per question, candidate answers are verified against
// the retrieved context and revised until grounded, and unhelpful answers
// trigger query rewrites and re-retrieval, all under bounded budgets.
//
// Usage:
//
//	# Start the daemon with defaults
//	answerd
//
//	# Ingest a corpus directory and exit
//	answerd ingest ./docs
//
//	# Configure via file or environment
//	SERVER_PORT=8000 VECTORSTORE_PROVIDER=chromem answerd
//	answerd -config /etc/answerd/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability/openai"
	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/embeddings"
	"github.com/fyrsmithlabs/answerd/internal/events"
	httpserver "github.com/fyrsmithlabs/answerd/internal/http"
	"github.com/fyrsmithlabs/answerd/internal/ingest"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/orchestrator"
	"github.com/fyrsmithlabs/answerd/internal/retrieval"
	"github.com/fyrsmithlabs/answerd/internal/session"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/answerd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
	case "version":
		printVersion()
		os.Exit(0)
	case "ingest":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: answerd ingest <dir>\n")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fmt.Fprintf(os.Stderr, "\nUsage:\n")
		fmt.Fprintf(os.Stderr, "  answerd               Start the answerd daemon\n")
		fmt.Fprintf(os.Stderr, "  answerd ingest <dir>  Ingest a corpus directory and exit\n")
		fmt.Fprintf(os.Stderr, "  answerd version       Show version information\n")
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	var err error
	switch command {
	case "ingest":
		err = runIngest(ctx, *configPath, args[1])
	default:
		err = runServe(ctx, *configPath)
	}
	if err != nil {
		log.Fatalf("answerd error: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("answerd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// dependencies holds all long-lived infrastructure shared by concurrent
// turns. Everything here is constructed once per process.
type dependencies struct {
	logger    *logging.Logger
	store     vectorstore.Store
	publisher events.Publisher
	engine    *orchestrator.Engine
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.publisher != nil {
		d.publisher.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.logger != nil {
		_ = d.logger.Sync()
	}
}

// initDependencies wires the capability clients, vector store, and engine.
func initDependencies(cfg *config.Config) (*dependencies, error) {
	logger, err := logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore, embedder, logger.Underlying().Named("vectorstore"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	retriever, err := retrieval.New(store, logger.Underlying().Named("retrieval"))
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	llmClient, err := openai.New(cfg.LLM, logger.Underlying().Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	engine, err := orchestrator.NewEngine(
		llmClient.Ports(retriever),
		orchestrator.LimitsFromConfig(cfg.Turn, cfg.Retrieval),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	publisher, err := events.New(cfg.Events, logger.Underlying().Named("events"))
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	return &dependencies{
		logger:    logger,
		store:     store,
		publisher: publisher,
		engine:    engine,
	}, nil
}

// runServe starts the daemon and blocks until ctx is canceled.
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	deps, err := initDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	logger := deps.logger
	logger.Info(ctx, "starting answerd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	coordinator, err := session.NewCoordinator(deps.engine, deps.publisher, logger)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	srv, err := httpserver.NewServer(coordinator, logger.Underlying().Named("http"), &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Optional corpus watcher for live re-ingest.
	if cfg.Ingest.Watch && cfg.Ingest.Dir != "" {
		ingester, err := ingest.New(cfg.Ingest, deps.store, logger.Underlying().Named("ingest"))
		if err != nil {
			return fmt.Errorf("failed to create ingester: %w", err)
		}
		watcher, err := ingest.NewWatcher(ingester, cfg.Ingest.Dir, logger.Underlying().Named("ingest"))
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("chat_endpoint", "/get"),
		zap.String("ws_endpoint", "/ws/chat"),
		zap.String("metrics_endpoint", "/metrics"),
	)

	return srv.Start(ctx, cfg.Server.ShutdownTimeout.Duration())
}

// runIngest ingests a corpus directory and exits.
func runIngest(ctx context.Context, configPath, dir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	embedder, err := embeddings.NewEmbedder(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore, embedder, logger.Underlying().Named("vectorstore"))
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ingester, err := ingest.New(cfg.Ingest, store, logger.Underlying().Named("ingest"))
	if err != nil {
		return fmt.Errorf("failed to create ingester: %w", err)
	}

	chunks, err := ingester.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Ingested %d chunks from %s\n", chunks, dir)
	return nil
}
