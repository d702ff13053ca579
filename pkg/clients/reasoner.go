package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const maxGenerateRetries = 3

// errStreamStopped signals that the consumer stopped iterating mid-stream.
var errStreamStopped = errors.New("stream consumer stopped")

// Model is the subset of the langchaingo LLM surface the service needs.
// *googleai.GoogleAI satisfies it.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Reasoner adapts a langchaingo model to the research engine's structured and
// streaming call shapes.
type Reasoner struct {
	LLM    Model
	Logger *slog.Logger
}

func NewReasoner(llm Model, logger *slog.Logger) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reasoner{LLM: llm, Logger: logger}
}

// GenerateJSON makes one structured call and returns the raw response text,
// validated to be a single JSON value. It retries up to 3 times on model
// errors or non-JSON output.
func (r *Reasoner) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for i := 0; i < maxGenerateRetries; i++ {
		if i > 0 {
			r.Logger.Warn("retrying structured generation", "attempt", i+1, "last_error", lastErr)
			time.Sleep(time.Second * time.Duration(i))
		}

		resp, err := r.LLM.GenerateContent(ctx, messages,
			llms.WithJSONMode(),
			llms.WithTemperature(0.2),
		)
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		content := resp.Choices[0].Content
		if !json.Valid([]byte(content)) {
			lastErr = fmt.Errorf("llm response is not valid JSON")
			continue
		}
		return content, nil
	}

	return "", fmt.Errorf("structured generation failed after %d retries: %w", maxGenerateRetries, lastErr)
}

// StreamText generates a long-form answer and yields it chunk by chunk as the
// model produces it. The returned sequence ends with an error entry if the
// call fails; a nil-error end means the model finished.
func (r *Reasoner) StreamText(ctx context.Context, system, prompt string) iter.Seq2[string, error] {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	return func(yield func(string, error) bool) {
		_, err := r.LLM.GenerateContent(ctx, messages,
			llms.WithTemperature(0.5),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				if !yield(string(chunk), nil) {
					return errStreamStopped
				}
				return nil
			}),
		)
		if err != nil && !errors.Is(err, errStreamStopped) {
			yield("", fmt.Errorf("streaming generation failed: %w", err))
		}
	}
}

// GenerateText makes one plain call and returns the full response text.
func (r *Reasoner) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := r.LLM.GenerateContent(ctx, messages, llms.WithTemperature(0.5))
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}
