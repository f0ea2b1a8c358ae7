package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const captionInstruction = "Describe this image in one short sentence, focusing on any visible skin, body or health-related details."

// Captioner asks a vision-capable chat model to caption an image.
type Captioner struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewCaptioner connects to an OpenAI-compatible vision model. An empty
// token leaves the captioner unconfigured.
func NewCaptioner(baseURL, token, model string, logger *zap.Logger) (*Captioner, error) {
	if token == "" {
		logger.Warn("vision API key not set, image captioning disabled")
		return NewCaptionerWithModel(nil, logger), nil
	}
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return NewCaptionerWithModel(llm, logger), nil
}

func NewCaptionerWithModel(model llms.Model, logger *zap.Logger) *Captioner {
	return &Captioner{llm: model, logger: logger}
}

// Caption makes a single attempt; there is no fallback caption.
func (c *Captioner) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	if c == nil || c.llm == nil {
		return "", ErrUnavailable
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	msg := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mimeType, image),
			llms.TextPart(captionInstruction),
		},
	}
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{msg}, llms.WithMaxTokens(50))
	if err != nil {
		c.logger.Error("image captioning failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: empty caption", ErrFailed)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
