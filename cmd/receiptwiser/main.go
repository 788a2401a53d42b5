package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receiptwiser/internal/receipt"
	"github.com/zombor/receiptwiser/internal/scanning"
	"github.com/zombor/receiptwiser/pkg/logging"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// scannerConfig selects and configures the extraction service
type scannerConfig struct {
	kind          string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	openAIKey     string
	openAIModel   string
	openAIBaseURL string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receiptwiser")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "receiptwiser.db", "Database file path")
		dbDriver      = fs.StringLong("db-driver", "bolt", "Database driver: 'bolt' or 'sqlite'")
		storagePath   = fs.StringLong("storage", "./receipts", "Receipt image directory")
		scannerType   = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini', 'ollama', 'openai' or 'mock'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2.5vl)")
		openAIKey     = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel   = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI vision model name")
		openAIBaseURL = fs.StringLong("openai-base-url", "", "OpenAI compatible API base URL (optional)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		publicURL     = fs.StringLong("public-url", "", "Base URL used in share links (default: derived from the request)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		noMetrics     = fs.BoolLong("no-metrics", "Disable the /metrics endpoint")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTWISER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing database...", "driver", *dbDriver, "path", *dbPath)
	db, err := openDB(*dbDriver, *dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	scanner, err := newScanner(ctx, scannerConfig{
		kind:          *scannerType,
		geminiKey:     firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		openAIKey:     firstNonEmpty(*openAIKey, os.Getenv("OPENAI_API_KEY")),
		openAIModel:   *openAIModel,
		openAIBaseURL: *openAIBaseURL,
	})
	if err != nil {
		slog.Error("Failed to initialize scanner", "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, scanner, store)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	opts := []receipt.Option{receipt.WithPublicURL(*publicURL)}
	if !*noMetrics {
		opts = append(opts, receipt.WithMetrics(receipt.NewMetrics("receiptwiser")))
	}
	server := receipt.NewServer(receiptService, basicAuth, opts...)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

// openDB opens the receipt database with the named driver
func openDB(driver, path string) (receipt.DB, error) {
	switch driver {
	case "bolt", "bbolt", "":
		return receipt.NewBoltDB(path)
	case "sqlite":
		return receipt.NewSQLiteDB(path)
	default:
		return nil, fmt.Errorf("unknown database driver %q (want bolt or sqlite)", driver)
	}
}

// newScanner builds the configured scanner. Hosted scanners without an API
// key fall back to the mock so the app stays usable for manual entry.
func newScanner(ctx context.Context, cfg scannerConfig) (scanning.Scanner, error) {
	switch cfg.kind {
	case "gemini":
		if cfg.geminiKey == "" {
			slog.Warn("No Gemini API key configured, using mock scanner")
			return scanning.NewMock(), nil
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, cfg.geminiKey, cfg.geminiModel)
	case "openai":
		if cfg.openAIKey == "" {
			slog.Warn("No OpenAI API key configured, using mock scanner")
			return scanning.NewMock(), nil
		}
		slog.Info("Initializing OpenAI scanner...", "model", cfg.openAIModel, "base_url", cfg.openAIBaseURL)
		return scanning.NewOpenAI(cfg.openAIKey, cfg.openAIModel, cfg.openAIBaseURL)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	case "mock":
		return scanning.NewMock(), nil
	default:
		return nil, fmt.Errorf("invalid scanner type %q (want gemini, ollama, openai or mock)", cfg.kind)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
