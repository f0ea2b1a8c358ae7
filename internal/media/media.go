// Package media turns non-text input into text: images into captions and
// voice recordings into transcripts.
package media

import "errors"

var (
	// ErrUnavailable means the backing model is not configured.
	ErrUnavailable = errors.New("service is not configured")
	// ErrFailed means the backing model was called and did not produce text.
	ErrFailed = errors.New("service call failed")
)
