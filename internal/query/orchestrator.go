// Package query runs a user's question through the assistant pipeline:
// normalize the input, load recent turns, build the prompt, generate the
// answer and record the exchange.
package query

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/healthpad/internal/db"
	"github.com/RichardoC/healthpad/internal/llm"
	"github.com/RichardoC/healthpad/internal/models"
	"go.uber.org/zap"
)

var ErrEmptyInput = errors.New("input cannot be empty")

const (
	DefaultContextTurns   = 10
	DefaultDashboardLimit = 100
)

type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, prompt string, history []models.Turn) (string, error)
}

// Recorder accepts turns for asynchronous storage.
type Recorder interface {
	Record(turns ...models.Turn) bool
}

type Options struct {
	ContextTurns   int
	DashboardLimit int
}

type Orchestrator struct {
	captioner   Captioner
	transcriber Transcriber
	responder   Responder
	turns       db.TurnStore
	recorder    Recorder
	logger      *zap.Logger

	contextTurns   int
	dashboardLimit int
	now            func() time.Time

	// mu orders stamping with Record so stored timestamps follow record
	// order; last is the most recent stamp issued.
	mu   sync.Mutex
	last time.Time
}

func New(c Captioner, t Transcriber, r Responder, turns db.TurnStore, rec Recorder, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = DefaultContextTurns
	}
	if opts.DashboardLimit <= 0 {
		opts.DashboardLimit = DefaultDashboardLimit
	}
	return &Orchestrator{
		captioner:      c,
		transcriber:    t,
		responder:      r,
		turns:          turns,
		recorder:       rec,
		logger:         logger,
		contextTurns:   opts.ContextTurns,
		dashboardLimit: opts.DashboardLimit,
		now:            time.Now,
	}
}

type ImageAnswer struct {
	Response string
	Caption  string
}

type VoiceAnswer struct {
	Transcript string
	Response   string
}

func (o *Orchestrator) Text(ctx context.Context, acc *models.Account, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return o.answer(ctx, acc, llm.TextPrompt(text), text)
}

func (o *Orchestrator) Image(ctx context.Context, acc *models.Account, query string, image []byte, mimeType string) (*ImageAnswer, error) {
	if len(image) == 0 {
		return nil, ErrEmptyInput
	}

	caption, err := o.captioner.Caption(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	prompt := llm.ImagePrompt(query, caption)
	// the stored turn keeps what the user sent, not the assembled prompt
	content := strings.TrimSpace(strings.TrimSpace(query) + "\n[image: " + caption + "]")
	resp, err := o.answer(ctx, acc, prompt, content)
	if err != nil {
		return nil, err
	}
	return &ImageAnswer{Response: resp, Caption: caption}, nil
}

func (o *Orchestrator) Voice(ctx context.Context, acc *models.Account, audio []byte, filename, textContext string, imageContext bool) (*VoiceAnswer, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyInput
	}

	transcript, err := o.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	prompt := llm.VoicePrompt(transcript, textContext, imageContext)
	// the stored turn keeps what the user sent, not the assembled prompt
	content := transcript
	if tc := strings.TrimSpace(textContext); tc != "" {
		content += "\n" + tc
	}
	resp, err := o.answer(ctx, acc, prompt, content)
	if err != nil {
		return nil, err
	}
	return &VoiceAnswer{Transcript: transcript, Response: resp}, nil
}

// History returns the dashboard view of the user's turns, newest first. A
// read failure yields an empty list.
func (o *Orchestrator) History(ctx context.Context, acc *models.Account) []models.Turn {
	turns, err := o.turns.RecentTurns(ctx, userKey(acc), o.dashboardLimit)
	if err != nil {
		o.logger.Error("failed to load history", zap.Error(err), zap.Int64("user_id", acc.ID))
		return []models.Turn{}
	}
	return turns
}

func (o *Orchestrator) answer(ctx context.Context, acc *models.Account, prompt, userContent string) (string, error) {
	userID := userKey(acc)

	history, err := o.turns.RecentTurns(ctx, userID, o.contextTurns)
	if err != nil {
		o.logger.Warn("failed to load conversation memory, continuing without it",
			zap.Error(err), zap.String("user_id", userID))
		history = []models.Turn{}
	}

	resp, err := o.responder.Respond(ctx, prompt, db.Chronological(history))
	if err != nil {
		return "", err
	}

	o.record(userID, userContent, resp)
	return resp, nil
}

// record stamps and queues the exchange. Stamps are strictly increasing by
// at least a millisecond across all calls, so ordering by timestamp matches
// record order even on stores that keep millisecond precision.
func (o *Orchestrator) record(userID, userContent, resp string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	asked := o.stampLocked()
	answered := o.stampLocked()
	ok := o.recorder.Record(
		models.Turn{UserID: userID, Role: models.RoleUser, Content: userContent, CreatedAt: asked},
		models.Turn{UserID: userID, Role: models.RoleAssistant, Content: resp, CreatedAt: answered},
	)
	if !ok {
		o.logger.Warn("conversation turns not recorded", zap.String("user_id", userID))
	}
}

func (o *Orchestrator) stampLocked() time.Time {
	t := o.now()
	if !o.last.IsZero() {
		if floor := o.last.Add(time.Millisecond); t.Before(floor) {
			t = floor
		}
	}
	o.last = t
	return t
}

func userKey(acc *models.Account) string {
	return strconv.FormatInt(acc.ID, 10)
}
