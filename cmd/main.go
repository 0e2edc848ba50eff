package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"riskcalc/internal/archive"
	"riskcalc/internal/cache"
	"riskcalc/internal/composer"
	"riskcalc/internal/configuration"
	"riskcalc/internal/history"
	"riskcalc/internal/modifier"
	"riskcalc/internal/recommend"
	"riskcalc/internal/score"
	"riskcalc/internal/server"
	"riskcalc/internal/validation"

	"gopkg.in/natefinch/lumberjack.v2"
)

// prepareLogger installs a JSON slog logger at the configured level.
// Output goes to a rotated file when logger.file is set, otherwise to stdout.
// Unknown levels fall back to Info.
func prepareLogger(config configuration.LoggerConfig) *lumberjack.Logger {
	var logLevel slog.Level

	switch strings.ToLower(config.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var file *lumberjack.Logger
	if config.File != "" {
		file = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
		}
		out = file
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return file
}

func loadTables(file string) (score.Tables, error) {
	if file == "" {
		return score.DefaultTables()
	}
	return score.LoadTablesFromFile(file)
}

func loadRecommender(file string) (*recommend.Recommender, error) {
	if file == "" {
		return recommend.Default()
	}
	return recommend.LoadFromFile(file)
}

func loadChain(file string) (*modifier.Chain, error) {
	if file == "" {
		return modifier.NewDefaultChain()
	}
	settings, err := modifier.LoadSettingsFromFile(file)
	if err != nil {
		return nil, err
	}
	return modifier.NewChainFromSettings(settings), nil
}

func openHistory(config configuration.HistoryConfig) *history.Ledger {
	if !config.AutoSave {
		return history.NewLedger(config.Length, nil)
	}
	store, err := history.OpenBoltStore(config.Path, config.Length)
	if err != nil {
		slog.Error("Unable to open history store, history will not be saved", "path", config.Path, "error", err)
		return history.NewLedger(config.Length, nil)
	}
	return history.NewLedger(config.Length, store)
}

// On configuration, coefficient table or rule errors the application exits with code 1.
func main() {
	configPath := flag.String("config", "/etc/riskcalc/config.yaml", "configuration file")
	flag.Parse()
	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}
	logFile := prepareLogger(config.Logger)

	appCtx, appCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer appCancel()

	tables, err := loadTables(config.Engine.Coefficients)
	if err != nil {
		slog.Error("Unable to load coefficient tables", "error", err)
		os.Exit(1)
	}
	engine, err := score.NewEngine(tables)
	if err != nil {
		slog.Error("Unable to initialize scoring engine", "error", err)
		os.Exit(1)
	}

	recommender, err := loadRecommender(config.Engine.Rules)
	if err != nil {
		slog.Error("Unable to load recommendation rules", "error", err)
		os.Exit(1)
	}

	chain, err := loadChain(config.Engine.Modifiers)
	if err != nil {
		slog.Error("Unable to load modifier settings", "error", err)
		os.Exit(1)
	}

	var results *cache.ResultCache
	if config.Cache.Enabled {
		results, err = cache.NewResultCache(config.Cache.Size, config.Cache.TTL)
		if err != nil {
			slog.Error("Unable to initialize result cache", "error", err)
			os.Exit(1)
		}
	}

	ledger := openHistory(config.History)

	var sink archive.Sink = archive.Discard{}
	if config.Archive.File != "" {
		sink = archive.NewJsonArchive(config.Archive.File, config.Archive.MaxSize, config.Archive.MaxBackups)
	}

	assessor, err := composer.NewComposer(composer.Components{
		Validator:      validation.NewValidator(),
		Engine:         engine,
		Chain:          chain,
		Recommender:    recommender,
		Cache:          results,
		History:        ledger,
		Archive:        sink,
		ModifiedModels: config.Engine.Models(),
	})
	if err != nil {
		slog.Error("Unable to initialize composer", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(config.Server.Address, assessor)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			appCancel()
		}
	}()
	slog.Info("Server listening "+config.Server.Address, "rules", recommender.Len())
	<-appCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown", "error", err)
	}
	slog.Info("Server stopped")

	if err := sink.Close(); err != nil {
		slog.Error("Archive close", "error", err)
	}
	if err := ledger.Close(); err != nil {
		slog.Error("History close", "error", err)
	}
	if logFile != nil {
		logFile.Close()
	}
}
