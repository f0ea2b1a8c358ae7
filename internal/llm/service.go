// Package llm builds prompts and asks the language model for the
// assistant's reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/healthpad/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var ErrGeneration = errors.New("language model request failed")

const (
	FallbackResponse    = "I'm sorry, I encountered an error while processing your request."
	UnavailableResponse = "LLM service is unavailable. Please check the language model API key."
)

// FailurePolicy decides what Respond does when the model call fails.
type FailurePolicy string

const (
	// PolicyDegrade answers with FallbackResponse and no error.
	PolicyDegrade FailurePolicy = "degrade"
	// PolicySurface returns ErrGeneration to the caller.
	PolicySurface FailurePolicy = "surface"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyDegrade:
		return PolicyDegrade, nil
	case PolicySurface:
		return PolicySurface, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

const systemPrompt = `You are a highly sophisticated and empathetic AI Health Assistant.
Your primary role is to provide safe, informative, and helpful preliminary guidance based on user-provided symptoms, medical questions, or images.
Follow these rules in every response:

1. Safety disclaimer: always begin with a clear disclaimer that you are an AI assistant, not a medical professional, and that your analysis is for informational purposes only. Urge the user to consult a qualified healthcare provider.
2. Symptom analysis: carefully analyze the symptoms or query provided.
3. Potential conditions: list a few possible conditions using cautious language such as "This could possibly be related to...".
4. Advice: give general, safe, actionable lifestyle and dietary suggestions.
5. Never diagnose: do not say "You have..." or "This is...". Always frame it as a possibility.
6. Tone: stay professional, calm, and empathetic.`

type Service struct {
	llm    llms.Model
	policy FailurePolicy
	logger *zap.Logger
}

// New connects to an OpenAI-compatible chat endpoint. An empty token
// leaves the service unconfigured; Respond then answers with
// UnavailableResponse.
func New(baseURL, token, model string, policy FailurePolicy, logger *zap.Logger) (*Service, error) {
	if token == "" {
		logger.Warn("language model API key not set, LLM service disabled")
		return NewWithModel(nil, policy, logger), nil
	}
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, policy, logger), nil
}

func NewWithModel(model llms.Model, policy FailurePolicy, logger *zap.Logger) *Service {
	if policy == "" {
		policy = PolicyDegrade
	}
	return &Service{llm: model, policy: policy, logger: logger}
}

func (s *Service) Available() bool {
	return s.llm != nil
}

// Respond sends the system instruction, the prior turns (oldest first) and
// the new prompt, and returns the model's reply.
func (s *Service) Respond(ctx context.Context, prompt string, history []models.Turn) (string, error) {
	if s.llm == nil {
		return UnavailableResponse, nil
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, t := range history {
		messages = append(messages, llms.TextParts(chatRole(t.Role), t.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := s.llm.GenerateContent(ctx, messages)
	if err == nil && (resp == nil || len(resp.Choices) == 0) {
		err = errors.New("empty response from model")
	}
	if err != nil {
		s.logger.Error("failed to generate completion", zap.Error(err), zap.String("policy", string(s.policy)))
		if s.policy == PolicySurface {
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		return FallbackResponse, nil
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func chatRole(role string) llms.ChatMessageType {
	if role == models.RoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
