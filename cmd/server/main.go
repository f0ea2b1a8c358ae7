package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/healthpad/internal/api"
	"github.com/RichardoC/healthpad/internal/auth"
	"github.com/RichardoC/healthpad/internal/config"
	"github.com/RichardoC/healthpad/internal/db"
	"github.com/RichardoC/healthpad/internal/journal"
	"github.com/RichardoC/healthpad/internal/llm"
	"github.com/RichardoC/healthpad/internal/media"
	"github.com/RichardoC/healthpad/internal/query"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	policy, err := llm.ParseFailurePolicy(cfg.LLM.FailurePolicy)
	if err != nil {
		logger.Fatal("invalid llm.failure_policy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, turns, closers := openStores(ctx, cfg, logger)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("failed to close store", zap.Error(err))
			}
		}
	}()

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialize tokens", zap.Error(err))
	}
	gate := auth.NewGate(accounts, tokens, logger)

	llmService, err := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, policy, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}
	captioner, err := media.NewCaptioner(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.Media.CaptionModel, logger)
	if err != nil {
		logger.Fatal("failed to initialize image captioner", zap.Error(err))
	}
	transcriber := media.NewTranscriber(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.Media.TranscriptionModel, logger)

	turnWriter := journal.NewWriter(turns, cfg.Memory.QueueSize, cfg.Memory.WriteTimeout, logger)
	defer turnWriter.Close()

	orch := query.New(captioner, transcriber, llmService, turns, turnWriter, query.Options{
		ContextTurns:   cfg.Memory.ContextTurns,
		DashboardLimit: cfg.Memory.DashboardLimit,
	}, logger)

	handler := api.NewHandler(gate, orch, cfg.Media.MaxUploadBytes, logger)
	cors := &api.CORSPolicy{AllowedOrigins: cfg.Server.AllowedOrigins}
	server := api.NewServer(api.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, handler.Routes(cors), logger)

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := turnWriter.Flush(flushCtx); err != nil {
		logger.Warn("conversation turns still pending at shutdown", zap.Error(err))
	}
}

// openStores opens the account store and the turn store named by the
// configuration. When both use the same relational driver they share one
// connection.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.AccountStore, db.TurnStore, []io.Closer) {
	var (
		accounts db.AccountStore
		turns    db.TurnStore
		closers  []io.Closer
	)

	switch cfg.Database.Driver {
	case "postgres":
		pg, err := db.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		accounts, closers = pg, append(closers, pg)
		if cfg.Memory.Driver == "postgres" {
			turns = pg
		}
	default:
		lite, err := db.NewSQLite(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to initialize database",
				zap.Error(err),
				zap.String("dbPath", cfg.Database.Path))
		}
		accounts, closers = lite, append(closers, lite)
		if cfg.Memory.Driver == "sqlite" {
			turns = lite
		}
	}

	if cfg.Memory.Driver == "mongo" {
		m, err := db.NewMongo(ctx, cfg.Memory.MongoURI)
		if err != nil {
			logger.Fatal("failed to connect to mongo", zap.Error(err))
		}
		turns, closers = m, append(closers, m)
	}

	logger.Info("stores ready",
		zap.String("accounts", cfg.Database.Driver),
		zap.String("memory", cfg.Memory.Driver))
	return accounts, turns, closers
}
