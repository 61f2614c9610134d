package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/tutor/internal/adapter/cms"
	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/config"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
	"github.com/xiaot623/gogo/tutor/internal/repository"
	"github.com/xiaot623/gogo/tutor/internal/service"
	"github.com/xiaot623/gogo/tutor/policy"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Portuguese tutoring chat backend",
	Long: `tutor serves a chat API that answers questions about Portuguese,
generates practice quizzes and adapts their difficulty to the learner.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quizCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command needs, plus the cleanup for it.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *repository.SQLiteStore
	cache *cms.RedisCache
	svc   *service.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Initialize completion backend
	llmClient, err := llm.NewLLMClient(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	gateway := completion.NewGateway(llmClient, cfg.LLMModel, cfg.LLMTemperature, log)

	// Initialize CMS client with optional redis cache
	var cache *cms.RedisCache
	var topicCache cms.TopicCache
	if cfg.RedisAddr != "" {
		cache = cms.NewRedisCache(cfg.RedisAddr)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, topic cache will miss until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		topicCache = cache
	}
	cmsClient := cms.NewClient(cfg.CMSBaseURL, cfg.CMSTimeout, topicCache, cfg.TopicCacheTTL, log)

	a := &app{cfg: cfg, log: log, db: db, cache: cache}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	catalog, err := prompts.Default()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load prompt catalog: %w", err)
	}

	a.svc = service.New(db, gateway, catalog, cmsClient, cfg, policyEngine, log)
	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("failed to close redis client", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close store", "error", err)
	}
	a.log.Sync()
}
