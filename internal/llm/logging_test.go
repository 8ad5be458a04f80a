package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []model.LLMEvent
	err    error
}

func (f *fakeRecorder) AppendLLMEvent(_ context.Context, ev model.LLMEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func TestWithLoggingRecordsSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	p := WithLogging(NewMockProvider(MockResponse{Text: "hello"}), "mock", rec)

	ctx := WithPurpose(context.Background(), "feedback")
	resp, err := p.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, "feedback", ev.Purpose)
	assert.Equal(t, "mock", ev.Provider)
	assert.Equal(t, "mock", ev.Model)
	assert.True(t, ev.Success)
	assert.Empty(t, ev.Error)
}

func TestWithLoggingRecordsFailure(t *testing.T) {
	rec := &fakeRecorder{}
	boom := errors.New("boom")
	p := WithLogging(NewMockProvider(MockResponse{Err: boom}), "mock", rec)

	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)

	require.Len(t, rec.events, 1)
	assert.False(t, rec.events[0].Success)
	assert.Equal(t, "boom", rec.events[0].Error)
	assert.Equal(t, "unknown", rec.events[0].Purpose)
}

func TestWithLoggingRecorderErrorIgnored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockResponse{Text: "ok"}), "mock", rec)

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestWithLoggingNilRecorder(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Text: "ok"}), "mock", nil)
	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return &Response{Text: "late"}, nil
	}
}

func (slowProvider) ModelID() string { return "slow" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "slow", p.ModelID())

	// Zero disables the decorator.
	inner := NewMockProvider()
	assert.Same(t, inner, WithTimeout(inner, 0))
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(MockResponse{Text: "first"})
	m.AddResponse(MockResponse{Text: "second"})

	r1, err := m.Generate(context.Background(), Request{System: "s1"})
	require.NoError(t, err)
	r2, err := m.Generate(context.Background(), Request{System: "s2"})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Text)
	assert.Equal(t, "second", r2.Text)

	_, err = m.Generate(context.Background(), Request{})
	var pu *ErrProviderUnavailable
	assert.True(t, errors.As(err, &pu))

	assert.Equal(t, 3, m.CallCount())
	last, ok := m.LastRequest()
	require.True(t, ok)
	assert.Empty(t, last.System)

	m.Fallback = "fallback"
	r, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", r.Text)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"mock", Config{Provider: "mock"}, false},
		{"openai without key", Config{Provider: "openai"}, false},
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", APIKey: "k"}, false},
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"unknown", Config{Provider: "cohere"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantURL   string
		wantKey   string
		wantModel string
	}{
		{"anthropic keeps SDK endpoint", Config{Provider: "anthropic", APIKey: "sk-test"}, "", "sk-test", "claude-sonnet"},
		{"anthropic explicit endpoint", Config{Provider: "anthropic", APIKey: "k", BaseURL: "http://proxy"}, "http://proxy", "k", "claude-sonnet"},
		{"gemini", Config{Provider: "gemini", APIKey: "k", Model: "gemini-pro"}, "", "k", "gemini-pro"},
		{"openai falls back to ollama", Config{Provider: "openai"}, DefaultOpenAIBaseURL, DefaultOpenAIKey, "llama3.2"},
		{"openai explicit", Config{Provider: "openai", BaseURL: "https://api.openai.com/v1", APIKey: "sk"}, "https://api.openai.com/v1", "sk", "llama3.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.withDefaults()
			assert.Equal(t, tt.wantURL, got.BaseURL)
			assert.Equal(t, tt.wantKey, got.APIKey)
			assert.Equal(t, tt.wantModel, got.Model)
		})
	}
}

func TestNewProviderAnthropicRequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "anthropic"}, nil)
	assert.Error(t, err)

	p, err := NewProvider(context.Background(), Config{Provider: "anthropic", APIKey: "sk-test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", p.ModelID())
}

func TestNewProviderMock(t *testing.T) {
	rec := &fakeRecorder{}
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, rec)
	require.NoError(t, err)

	tests := []struct {
		purpose string
		check   func(t *testing.T, text string)
	}{
		{"curriculum", func(t *testing.T, text string) {
			assert.Contains(t, text, `"lessonPlans"`)
			assert.True(t, json.Valid([]byte(text)))
		}},
		{"welcome", func(t *testing.T, text string) { assert.Contains(t, text, "Welcome") }},
		{"feedback", func(t *testing.T, text string) { assert.NotContains(t, text, prompts.CompletionMarker) }},
		{"response", func(t *testing.T, text string) { assert.Contains(t, text, prompts.CompletionMarker) }},
	}
	for _, tt := range tests {
		resp, err := p.Generate(WithPurpose(context.Background(), tt.purpose), Request{})
		require.NoError(t, err, tt.purpose)
		tt.check(t, resp.Text)
	}

	require.Len(t, rec.events, len(tests))
	assert.Equal(t, "curriculum", rec.events[0].Purpose)
}

func TestMockProviderByPurpose(t *testing.T) {
	m := NewMockProvider(MockResponse{Text: "queued"})
	m.ByPurpose = map[string]string{"welcome": "hello"}

	ctx := WithPurpose(context.Background(), "welcome")
	r, err := m.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "queued", r.Text, "queued responses come first")

	r, err = m.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", r.Text)

	_, err = m.Generate(WithPurpose(context.Background(), "feedback"), Request{})
	var pu *ErrProviderUnavailable
	assert.ErrorAs(t, err, &pu)
}
