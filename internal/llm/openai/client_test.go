package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseBody(text string) string {
	out, _ := json.Marshal(map[string]any{
		"id":         "resp_1",
		"object":     "response",
		"created_at": 1,
		"status":     "completed",
		"model":      "gpt-4o-mini",
		"output": []any{map[string]any{
			"type":   "message",
			"id":     "msg_1",
			"status": "completed",
			"role":   "assistant",
			"content": []any{map[string]any{
				"type":        "output_text",
				"text":        text,
				"annotations": []any{},
			}},
		}},
	})
	return string(out)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestGenerateSendsStrictSchema(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, responseBody(`{"date":"2024-05-27","keywords":["a","b","c"]}`))
	})

	resp, err := c.Generate(context.Background(), llm.Request{
		Instructions: "classify",
		Prompt:       "doc",
		SchemaName:   "DocumentAnalysis",
		Schema:       llm.DefaultSchema(nil, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2024-05-27","keywords":["a","b","c"]}`, resp.Content)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "classify", body["instructions"])
	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "DocumentAnalysis", format["name"])
	assert.Equal(t, true, format["strict"])
	props := format["schema"].(map[string]any)["properties"].(map[string]any)
	assert.NotContains(t, props["issuer"], "maxLength")
	assert.NotContains(t, props["keywords"], "minItems")
}

func TestGenerateRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
			return
		}
		_, _ = io.WriteString(w, responseBody(`{"date":"2024"}`))
	})

	resp, err := c.Generate(context.Background(), llm.Request{Prompt: "doc"})
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2024"}`, resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad schema","type":"invalid_request_error"}}`)
	})

	_, err := c.Generate(context.Background(), llm.Request{Prompt: "doc"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompliantSchema(t *testing.T) {
	dynamic := llm.DynamicSchema(map[string]entity.FieldKind{
		"date":     entity.FieldString,
		"keywords": entity.FieldList,
	}, 3)
	out, strict := compliantSchema(dynamic)
	assert.True(t, strict)
	assert.ElementsMatch(t, []any{"date", "keywords"}, out["required"])
	assert.NotContains(t, out["properties"].(map[string]any)["keywords"], "maxItems")
	assert.Contains(t, dynamic["properties"].(map[string]any)["keywords"], "maxItems", "input must not be mutated")

	withMap := llm.DynamicSchema(map[string]entity.FieldKind{"extra": entity.FieldMap}, 0)
	_, strict = compliantSchema(withMap)
	assert.False(t, strict)
}

func TestGenerateStopsWaitingWhenContextEnds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	})
	c.sleep = sleepCtx

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Generate(ctx, llm.Request{Prompt: "doc"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Minute), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))
}
