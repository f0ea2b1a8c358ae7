package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/RichardoC/healthpad/internal/auth"
	"github.com/RichardoC/healthpad/internal/query"
	"go.uber.org/zap"
)

const welcomeMessage = "Welcome to the AI Health Assistant API"

type Handler struct {
	gate           *auth.Gate
	orch           *query.Orchestrator
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(gate *auth.Gate, orch *query.Orchestrator, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		gate:           gate,
		orch:           orch,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes registers every endpoint on a new mux and wraps it with request
// logging and the CORS policy.
func (h *Handler) Routes(cors *CORSPolicy) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Root)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/auth/signup", h.Signup)
	mux.HandleFunc("/auth/login", h.Login)
	mux.HandleFunc("/query/text", h.requireAuth(h.QueryText))
	mux.HandleFunc("/query/image", h.requireAuth(h.QueryImage))
	mux.HandleFunc("/query/voice", h.requireAuth(h.QueryVoice))
	mux.HandleFunc("/dashboard/history", h.requireAuth(h.History))

	return logRequests(h.logger, cors.Wrap(mux))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Response string `json:"response"`
}

type imageResponse struct {
	Response     string `json:"response"`
	ImageCaption string `json:"image_caption"`
}

type voiceResponse struct {
	TranscribedText string `json:"transcribed_text"`
	TextResponse    string `json:"text_response"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Signup takes a JSON body.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.gate.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// Login takes an OAuth2 password-style form body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	session, err := h.gate.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) QueryText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.orch.Text(r.Context(), accountFrom(r.Context()), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, textResponse{Response: resp})
}

func (h *Handler) QueryImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	ans, err := h.orch.Image(r.Context(), accountFrom(r.Context()), r.FormValue("query"), up.data, up.mimeType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, imageResponse{Response: ans.Response, ImageCaption: ans.Caption})
}

func (h *Handler) QueryVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	imageContext := false
	if v := strings.TrimSpace(r.FormValue("image_context")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image_context must be a boolean")
			return
		}
		imageContext = b
	}

	ans, err := h.orch.Voice(r.Context(), accountFrom(r.Context()), up.data, up.filename, r.FormValue("text_context"), imageContext)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, voiceResponse{TranscribedText: ans.Transcript, TextResponse: ans.Response})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	turns := h.orch.History(r.Context(), accountFrom(r.Context()))
	h.logger.Debug("Retrieved history",
		zap.Int("count", len(turns)),
		zap.String("path", r.URL.Path))
	h.writeJSON(w, http.StatusOK, turns)
}

type upload struct {
	data     []byte
	mimeType string
	filename string
}

// readUpload parses a multipart body and returns its "file" part. It
// writes the error response itself and reports false on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return nil, false
	}

	up := &upload{data: data, mimeType: header.Header.Get("Content-Type"), filename: header.Filename}
	if up.mimeType == "" || up.mimeType == "application/octet-stream" {
		up.mimeType = http.DetectContentType(data)
	}
	return up, true
}
