package media

import (
	"context"
	"errors"
	"testing"

	"github.com/RichardoC/healthpad/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap/zaptest"
)

func TestCaption_SendsImageAndInstruction(t *testing.T) {
	model := &llmtest.Model{Reply: " a red rash on a forearm "}
	c := NewCaptionerWithModel(model, zaptest.NewLogger(t))

	out, err := c.Caption(context.Background(), []byte{0xff, 0xd8}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a red rash on a forearm", out)

	msgs, err := model.LastCall()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Parts, 2)
	img, ok := msgs[0].Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8}, img.Data)
}

func TestCaption_Unconfigured(t *testing.T) {
	c, err := NewCaptioner("http://localhost", "", "m", zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Caption(context.Background(), []byte("x"), "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCaption_ModelErrorHasNoFallback(t *testing.T) {
	model := &llmtest.Model{Err: errors.New("timeout")}
	c := NewCaptionerWithModel(model, zaptest.NewLogger(t))

	out, err := c.Caption(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Empty(t, out)
	assert.Len(t, model.Calls(), 1, "no retry")
}

func TestCaption_EmptyReply(t *testing.T) {
	c := NewCaptionerWithModel(&llmtest.Model{Reply: "  "}, zaptest.NewLogger(t))

	_, err := c.Caption(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrFailed)
}

// silentModel answers with no response and no error.
type silentModel struct{}

func (silentModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

func (m silentModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func TestCaption_NilResponse(t *testing.T) {
	c := NewCaptionerWithModel(silentModel{}, zaptest.NewLogger(t))

	_, err := c.Caption(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrFailed)
}
