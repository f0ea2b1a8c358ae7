// Command llmcheck sends one prompt through the configured chat model and
// prints the reply. It exits non-zero when the model cannot be reached.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RichardoC/healthpad/internal/config"
	"github.com/RichardoC/healthpad/internal/llm"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	service, err := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, llm.PolicySurface, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}
	if !service.Available() {
		logger.Fatal("language model API key not set")
	}

	prompt := llm.TextPrompt("What are common causes of a mild headache?")
	if len(os.Args) > 1 {
		prompt = llm.TextPrompt(strings.Join(os.Args[1:], " "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	completion, err := service.Respond(ctx, prompt, nil)
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(err), zap.String("model", cfg.LLM.Model))
	}
	fmt.Println(completion)
}
