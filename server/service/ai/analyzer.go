// Package ai calls an OpenAI-compatible endpoint to produce a prose
// analysis of a user-selected subset of notes. It is a boundary
// collaborator: the note/reminder core never depends on it, and missing
// credentials degrade only this feature.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	apperr "github.com/forestowl/notekeeper/internal/errors"
	"github.com/forestowl/notekeeper/store"
)

const (
	// minNotesForAnalysis is the lower bound on the selection size.
	minNotesForAnalysis = 3

	systemPrompt = "Вы — дружелюбный помощник для анализа заметок."
	userPrompt   = "Проанализируйте следующие заметки: "
)

// Config holds the analysis endpoint configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// Analyzer performs note analysis through the configured endpoint.
type Analyzer struct {
	client   *openai.Client // nil when credentials are absent
	config   Config
	registry *store.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalyzer creates an analyzer. With incomplete credentials the
// analyzer is still returned, and every Analyze call reports a
// configuration error.
func NewAnalyzer(cfg Config, registry *store.Store, logger *slog.Logger) *Analyzer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Analyzer{
		config:   cfg,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}

	if cfg.APIKey != "" && cfg.BaseURL != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = cfg.BaseURL
		a.client = openai.NewClientWithConfig(clientConfig)
	}
	return a
}

// Analyze selects note texts by id and submits them for analysis.
//
// The usage counter increments on attempt, before validation or any
// network call: a failed analysis still counts. Fewer than
// minNotesForAnalysis requested ids fail before any request is made.
func (a *Analyzer) Analyze(ctx context.Context, chatID int64, ids []int) (string, error) {
	if a.client == nil {
		return "", apperr.ConfigurationMissing("analysis endpoint credentials are not configured")
	}

	u := a.registry.Get(chatID)
	u.Mu.Lock()
	u.Stats.RecordAIAnalysis(a.now())
	selected := make([]string, 0, len(ids))
	for _, id := range ids {
		if text, ok := u.Notes.Get(id); ok {
			selected = append(selected, text)
		}
	}
	u.Mu.Unlock()

	if len(selected) == 0 {
		return "", apperr.InvalidSelection("no valid note ids in selection")
	}
	if len(ids) < minNotesForAnalysis {
		return "", apperr.InsufficientInput("analysis needs at least 3 notes")
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt + strings.Join(selected, " ")},
		},
	}

	var resp openai.ChatCompletionResponse
	err := a.doWithRetry(ctx, func() error {
		var callErr error
		resp, callErr = a.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return "", classifyCallError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.UpstreamFailure("empty analysis response", nil)
	}

	a.logger.Info("notes analyzed",
		"chat_id", chatID,
		"selected", len(selected),
		"model", a.config.Model,
	)
	return resp.Choices[0].Message.Content, nil
}

// doWithRetry executes a call with exponential backoff.
func (a *Analyzer) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < a.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < a.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				a.logger.Debug("analysis request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err,
				)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// classifyCallError maps client errors to the taxonomy: a response the
// endpoint produced is an upstream failure, anything below that is
// transport.
func classifyCallError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.UpstreamFailure("analysis endpoint returned an error", err)
	}
	return apperr.TransportFailure("analysis request failed", err)
}
