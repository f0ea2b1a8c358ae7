package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompts_AlwaysGuardAgainstDiagnosis(t *testing.T) {
	prompts := []string{
		TextPrompt("I have a headache"),
		ImagePrompt("", "a red rash"),
		ImagePrompt("is this bad?", "a red rash"),
		VoicePrompt("my throat hurts", "", false),
		VoicePrompt("my throat hurts", "for three days", true),
	}
	for _, p := range prompts {
		assert.Contains(t, p, diagnosisGuard)
	}
}

func TestPrompts_Deterministic(t *testing.T) {
	assert.Equal(t, TextPrompt("x"), TextPrompt("x"))
	assert.Equal(t, ImagePrompt("q", "c"), ImagePrompt("q", "c"))
	assert.Equal(t, VoicePrompt("t", "c", true), VoicePrompt("t", "c", true))
}

func TestImagePrompt_NamesEveryModality(t *testing.T) {
	withText := ImagePrompt("is this bad?", "a red rash on an arm")
	assert.True(t, strings.HasPrefix(withText, "The user said: 'is this bad?'. "))
	assert.Contains(t, withText, "The uploaded image appears to show: 'a red rash on an arm'.")
	assert.Contains(t, withText, "Identify possible health conditions.")

	imageOnly := ImagePrompt("   ", "a red rash on an arm")
	assert.NotContains(t, imageOnly, "The user said")
	assert.True(t, strings.HasPrefix(imageOnly, "The uploaded image appears to show"))
}

func TestVoicePrompt_OptionalContext(t *testing.T) {
	bare := VoicePrompt("my throat hurts", "", false)
	assert.Contains(t, bare, "voice message: 'my throat hurts'")
	assert.NotContains(t, bare, "They also wrote")
	assert.NotContains(t, bare, "image")

	full := VoicePrompt("my throat hurts", "since Monday", true)
	assert.Contains(t, full, "They also wrote: 'since Monday'.")
	assert.Contains(t, full, "image they shared")
}
