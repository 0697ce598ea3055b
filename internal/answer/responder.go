// Package answer turns retrieved transcript passages into an in-character
// response from the podcast hosts.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/podcast-rag/internal/llm"
	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

// Generation defaults.
const (
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 800
)

// ErrEmptyQuestion is returned when Ask receives a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Retriever finds the passages a response is grounded on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

// Options tunes generation. Zero values fall back to the defaults; K of 0
// uses the retriever's own default.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	K           int
}

// Answer is a generated response and the passages it was grounded on.
type Answer struct {
	Response string              `json:"response"`
	Passages []retrieval.Passage `json:"passages,omitempty"`
	Model    string              `json:"model,omitempty"`
}

// Responder answers questions in the hosts' voice.
type Responder struct {
	retriever Retriever
	provider  llm.Provider
	persona   Persona
	opts      Options
	logger    *slog.Logger
}

// NewResponder creates a Responder.
func NewResponder(retriever Retriever, provider llm.Provider, persona Persona, opts Options, logger *slog.Logger) *Responder {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		retriever: retriever,
		provider:  provider,
		persona:   persona,
		opts:      opts,
		logger:    logger.With("component", "answer"),
	}
}

// Ask retrieves context for question and asks the provider for a response.
// Any failure is returned as an error; no partial answer is produced.
func (r *Responder) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	passages, err := r.retriever.Retrieve(ctx, question, r.opts.K)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	start := time.Now()
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model: r.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: r.persona.SystemPrompt(retrieval.Texts(passages))},
			{Role: llm.RoleUser, Content: r.persona.UserPrompt(question)},
		},
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", r.provider.Name(), err)
	}

	r.logger.DebugContext(ctx, "generated response",
		"provider", r.provider.Name(),
		"passages", len(passages),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"duration", time.Since(start),
	)

	return &Answer{Response: resp.Content, Passages: passages, Model: resp.Model}, nil
}
