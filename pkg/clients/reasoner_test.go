package clients

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	responses []string
	errs      []error
	chunks    []string
	calls     int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, chunk := range f.chunks {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}

	resp := ""
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: resp}}}, nil
}

func testReasoner(m *fakeModel) *Reasoner {
	return NewReasoner(m, slog.New(slog.DiscardHandler))
}

func TestGenerateJSON(t *testing.T) {
	m := &fakeModel{responses: []string{`{"ok": true}`}}
	got, err := testReasoner(m).GenerateJSON(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if got != `{"ok": true}` {
		t.Errorf("GenerateJSON() = %q", got)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestGenerateJSONRetriesOnInvalidJSON(t *testing.T) {
	m := &fakeModel{responses: []string{"not json", `{"ok": true}`}}
	got, err := testReasoner(m).GenerateJSON(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if got != `{"ok": true}` {
		t.Errorf("GenerateJSON() = %q", got)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
}

func TestGenerateJSONGivesUpAfterRetries(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeModel{errs: []error{boom, boom, boom}}
	_, err := testReasoner(m).GenerateJSON(context.Background(), "sys", "prompt")
	if !errors.Is(err, boom) {
		t.Fatalf("GenerateJSON() error = %v, want wrapped boom", err)
	}
	if m.calls != maxGenerateRetries {
		t.Errorf("calls = %d, want %d", m.calls, maxGenerateRetries)
	}
}

func TestStreamText(t *testing.T) {
	m := &fakeModel{chunks: []string{"Hello", " ", "world"}}
	var parts []string
	for chunk, err := range testReasoner(m).StreamText(context.Background(), "sys", "prompt") {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		parts = append(parts, chunk)
	}
	if got := strings.Join(parts, ""); got != "Hello world" {
		t.Errorf("streamed text = %q", got)
	}
}

func TestStreamTextConsumerStop(t *testing.T) {
	m := &fakeModel{chunks: []string{"a", "b", "c"}}
	count := 0
	for _, err := range testReasoner(m).StreamText(context.Background(), "sys", "prompt") {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		count++
		break
	}
	if count != 1 {
		t.Errorf("consumed %d chunks, want 1", count)
	}
}

func TestStreamTextError(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeModel{errs: []error{boom}}
	var streamErr error
	for _, err := range testReasoner(m).StreamText(context.Background(), "sys", "prompt") {
		streamErr = err
	}
	if !errors.Is(streamErr, boom) {
		t.Errorf("stream error = %v, want wrapped boom", streamErr)
	}
}
