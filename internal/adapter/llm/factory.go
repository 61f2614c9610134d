package llm

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/tutor/internal/config"
	"github.com/xiaot623/gogo/tutor/internal/logger"
)

// NewLLMClient creates the completion backend named by cfg.LLMProvider.
func NewLLMClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (LLMClient, error) {
	switch cfg.LLMProvider {
	case config.ProviderMock:
		log.Info("using mock LLM client")
		return NewMockClient(), nil
	case config.ProviderGemini:
		log.Info("using gemini LLM client", "model", cfg.GeminiModel)
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
	case config.ProviderOpenAI, "":
		log.Info("using openai-compatible LLM client", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
		return NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
}
