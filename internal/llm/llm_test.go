package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	calls   int
	results []error
	text    string
}

func (s *scriptedBackend) Name() string { return "fake" }

func (s *scriptedBackend) Invoke(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return s.text, nil
}

func noSleep(r Backend) Backend {
	rb := r.(*retryBackend)
	rb.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return rb
}

func TestWithRetryRepeatsTransportFailures(t *testing.T) {
	transient := NewTransportError("op", "fake", errors.New("503"))
	b := &scriptedBackend{results: []error{transient, transient}, text: "ok"}

	got, err := noSleep(WithRetry(b, RetryPolicy{MaxAttempts: 3})).Invoke(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, b.calls)
}

func TestWithRetryStopsAtCap(t *testing.T) {
	transient := NewTransportError("op", "fake", errors.New("timeout"))
	b := &scriptedBackend{results: []error{transient, transient, transient, transient}}

	_, err := noSleep(WithRetry(b, RetryPolicy{MaxAttempts: 2})).Invoke(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 2, b.calls)
}

func TestWithRetryReturnsPermanentFailuresAtOnce(t *testing.T) {
	for _, perm := range []error{
		NewRejectedError("op", "fake", errors.New("400")),
		MalformedOutput("op", errors.New("bad json")),
		&ModelError{Op: "op", Backend: "fake", Err: ErrEmptyResponse},
	} {
		b := &scriptedBackend{results: []error{perm}}
		_, err := noSleep(WithRetry(b, RetryPolicy{MaxAttempts: 5})).Invoke(context.Background(), "p")
		assert.ErrorIs(t, err, perm)
		assert.Equal(t, 1, b.calls)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(5))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTransportError("op", "b", errors.New("x"))))
	assert.False(t, IsRetryable(NewRejectedError("op", "b", errors.New("x"))))
	assert.False(t, IsRetryable(MalformedOutput("op", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestRouter(t *testing.T) {
	haiku := BackendFunc{ModelName: ModelHaiku, Fn: func(context.Context, string) (string, error) { return "from haiku", nil }}
	gpt := BackendFunc{ModelName: ModelGPT, Fn: func(context.Context, string) (string, error) { return "from gpt", nil }}
	r := NewRouter(haiku, gpt)

	b, err := r.Select(ModelGPT)
	require.NoError(t, err)
	got, err := b.Invoke(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from gpt", got)

	_, err = r.Select("llama")
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assert.Equal(t, []string{"gpt", "haiku"}, r.Names())
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```{\"a\":1}```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripFences(tt.in))
	}
}

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":0.9}`, `{"a":0.9}`, true},
		{"prose around", `Here you go: {"a":0.9} hope that helps {"b":1}`, `{"a":0.9}`, true},
		{"nested", `x {"a":{"b":1}} y`, `{"a":{"b":1}}`, true},
		{"brace in string", `{"a":"}{","b":1}`, `{"a":"}{","b":1}`, true},
		{"escaped quote", `{"a":"say \"}\"","b":1}`, `{"a":"say \"}\"","b":1}`, true},
		{"unclosed", `{"a":1`, "", false},
		{"none", `no json here`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnthropicBackend(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		code := int(status.Load())
		w.WriteHeader(code)
		if code != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
			`"content":[{"type":"text","text":"{\"classification_type\":\"Legal\"}"}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	b, err := NewAnthropicBackend(ModelHaiku, AnthropicConfig{APIKey: "k", Model: "claude-test", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, ModelHaiku, b.Name())

	got, err := b.Invoke(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, `{"classification_type":"Legal"}`, got)

	status.Store(http.StatusInternalServerError)
	_, err = b.Invoke(context.Background(), "classify")
	assert.True(t, IsRetryable(err))

	status.Store(http.StatusBadRequest)
	_, err = b.Invoke(context.Background(), "classify")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestOpenAIBackend(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		code := int(status.Load())
		w.WriteHeader(code)
		if code != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,` +
			`"message":{"role":"assistant","content":"{\"a\":0.8}"},"finish_reason":"stop"}],` +
			`"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(ModelGPT, OpenAIConfig{APIKey: "k", Model: "gpt-test", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := b.Invoke(context.Background(), "score")
	require.NoError(t, err)
	assert.Equal(t, `{"a":0.8}`, got)

	status.Store(http.StatusTooManyRequests)
	_, err = b.Invoke(context.Background(), "score")
	assert.True(t, IsRetryable(err))

	status.Store(http.StatusUnauthorized)
	_, err = b.Invoke(context.Background(), "score")
	assert.False(t, IsRetryable(err))
}

func TestBackendsRequireAPIKey(t *testing.T) {
	_, err := NewAnthropicBackend(ModelSonnet, AnthropicConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewOpenAIBackend(ModelGPT, OpenAIConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
