package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/drive-renamer/internal/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// Generate implements llm.Generator over the Responses API, requesting json_schema output
// when the request carries a schema.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	params := responses.ResponseNewParams{
		Model:           model,
		MaxOutputTokens: openai.Int(c.cfg.MaxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(float64(c.cfg.Temperature))
	}
	strict := false
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "Output"
		}
		schema, ok := compliantSchema(req.Schema)
		strict = ok
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        name,
					Schema:      schema,
					Strict:      openai.Bool(strict),
					Description: openai.String("Document analysis JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	c.logger.Info("llm.openai.request",
		"req_id", rid,
		"model", model,
		"prompt_len", len(req.Prompt),
		"structured", req.Schema != nil,
		"strict", strict,
	)

	resp, err := c.callWithRetry(ctx, rid, params)
	if err != nil {
		c.logger.Error("llm.openai.error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.Response{}, err
	}
	text := resp.OutputText()
	c.logger.Info("llm.openai.response",
		"req_id", rid,
		"status", resp.Status,
		"output_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, errors.New("openai: empty output")
	}
	return llm.Response{Content: text}, nil
}

func (c *Client) callWithRetry(ctx context.Context, rid string, params responses.ResponseNewParams) (*responses.Response, error) {
	rateLimitWait := []time.Duration{5 * time.Second, 20 * time.Second, 60 * time.Second}
	serverErrorWait := []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == c.cfg.MaxRetries-1 {
			break
		}
		var wait time.Duration
		switch {
		case isRateLimitError(err):
			wait = rateLimitWait[min(attempt, len(rateLimitWait)-1)]
		case isServerError(err):
			wait = serverErrorWait[min(attempt, len(serverErrorWait)-1)]
		default:
			return nil, err
		}
		c.logger.Warn("llm.openai.retry", "req_id", rid, "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("openai: retry wait: %w", err)
		}
	}
	return nil, fmt.Errorf("openai: failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "internal server error") || strings.Contains(s, "server_error")
}
