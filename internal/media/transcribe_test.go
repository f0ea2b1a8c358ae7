package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.wav", hdr.Filename)
		assert.Equal(t, "RIFF", string(data))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" my throat hurts "}`)
	}))
	defer srv.Close()

	tr := NewTranscriber(srv.URL+"/v1/", "key", "whisper-large-v3", zaptest.NewLogger(t))
	text, err := tr.Transcribe(context.Background(), []byte("RIFF"), "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "my throat hurts", text)
}

func TestTranscribe_Unconfigured(t *testing.T) {
	tr := NewTranscriber("http://localhost", "", "whisper-large-v3", zaptest.NewLogger(t))

	_, err := tr.Transcribe(context.Background(), []byte("RIFF"), "clip.wav")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTranscribe_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := NewTranscriber(srv.URL, "key", "whisper-large-v3", zaptest.NewLogger(t))
	_, err := tr.Transcribe(context.Background(), []byte("x"), "")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, err.Error(), "400")
}

func TestTranscribe_EmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	tr := NewTranscriber(srv.URL, "key", "whisper-large-v3", zaptest.NewLogger(t))
	_, err := tr.Transcribe(context.Background(), []byte("x"), "a.wav")
	assert.ErrorIs(t, err, ErrFailed)
}

func TestTranscribe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := NewTranscriber(url, "key", "whisper-large-v3", zaptest.NewLogger(t))
	_, err := tr.Transcribe(context.Background(), []byte("x"), "a.wav")
	assert.ErrorIs(t, err, ErrFailed)
}
