package llm

import (
	"fmt"
	"strings"
)

const diagnosisGuard = "Do not give a definitive diagnosis; describe possibilities and recommend consulting a qualified healthcare provider."

// TextPrompt builds the request for a typed question.
func TextPrompt(text string) string {
	return fmt.Sprintf("The user wrote: '%s'. %s", strings.TrimSpace(text), diagnosisGuard)
}

// ImagePrompt builds the request for an uploaded image with an optional
// typed question.
func ImagePrompt(query, caption string) string {
	var b strings.Builder
	if q := strings.TrimSpace(query); q != "" {
		fmt.Fprintf(&b, "The user said: '%s'. ", q)
	}
	fmt.Fprintf(&b, "The uploaded image appears to show: '%s'. Identify possible health conditions. ", caption)
	b.WriteString(diagnosisGuard)
	return b.String()
}

// VoicePrompt builds the request for a voice recording. textContext is
// optional typed text sent with the recording; imageContext reports that
// the user is also referring to an image.
func VoicePrompt(transcript, textContext string, imageContext bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user said in a voice message: '%s'. ", strings.TrimSpace(transcript))
	if tc := strings.TrimSpace(textContext); tc != "" {
		fmt.Fprintf(&b, "They also wrote: '%s'. ", tc)
	}
	if imageContext {
		b.WriteString("They are also referring to an image they shared; take it into account. ")
	}
	b.WriteString("Address everything the user provided. ")
	b.WriteString(diagnosisGuard)
	return b.String()
}
