// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Model answers every call with Reply, or fails with Err when set. It
// records the messages of each call.
type Model struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

func (m *Model) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.Reply}}}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the recorded message lists.
func (m *Model) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llms.MessageContent(nil), m.calls...)
}

// LastCall returns the messages of the most recent call.
func (m *Model) LastCall() ([]llms.MessageContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil, errors.New("no calls recorded")
	}
	return m.calls[len(m.calls)-1], nil
}

// Text joins the text parts of a message.
func Text(msg llms.MessageContent) string {
	var out string
	for _, p := range msg.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
