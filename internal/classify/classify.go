// Package classify sends rendered page images to a vision-capable model
// and turns the replies into page verdicts. One Classifier serves one
// extraction run; the rolling history it is handed encodes page order, so
// calls must stay strictly sequential.
package classify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pvolkov/tome/internal/providers"
	"github.com/pvolkov/tome/internal/types"
)

// Classifier classifies single pages against an LLM client.
type Classifier struct {
	llm         providers.LLMClient
	model       string
	maxTokens   int
	temperature float64
}

// Config holds classifier settings.
type Config struct {
	Model       string
	MaxTokens   int     // default 512; verdicts are tiny
	Temperature float64 // default 0; boundary judgments should be stable
}

// New creates a Classifier speaking through the given LLM client.
func New(llm providers.LLMClient, cfg Config) *Classifier {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &Classifier{
		llm:         llm,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// ClassifyPage classifies one page image. On success the exchange is
// appended to hist so later pages see it as context. Any call or parse
// failure is returned as an error; the caller substitutes the
// continuation default so a single bad page never aborts a run.
func (c *Classifier) ClassifyPage(ctx context.Context, image []byte, page, totalPages int, hist *History) (types.PageVerdict, error) {
	user := userPrompt(page, totalPages)

	messages := make([]providers.Message, 0, hist.Len()+2)
	messages = append(messages, providers.Message{Role: "system", Content: SystemPrompt})
	messages = append(messages, hist.Messages()...)
	messages = append(messages, providers.Message{Role: "user", Content: user, Images: [][]byte{image}})

	result, err := c.llm.Chat(ctx, &providers.ChatRequest{
		Messages:    messages,
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		RequestID:   uuid.New().String(),
	})
	if err != nil {
		return types.PageVerdict{}, fmt.Errorf("classify page %d: %w", page, err)
	}

	verdict, err := ParseVerdict(result.Content)
	if err != nil {
		return types.PageVerdict{}, fmt.Errorf("classify page %d: %w", page, err)
	}

	// Prior page images are not replayed; the model's own verdicts carry
	// the continuity signal.
	hist.Add("user", user)
	hist.Add("assistant", result.Content)

	return verdict, nil
}
