package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/gateway"
)

// Complete implements gateway.Gateway over the /chat/completions endpoint.
// A single response choice is consumed; transport, auth and non-2xx failures
// surface as *gateway.Error.
func (c *Client) Complete(ctx context.Context, req gateway.ChatRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	model := c.cfg.Model
	hasImage := req.User.ImageDataURL != ""
	if hasImage {
		model = c.cfg.VisionModel
	}

	c.log.Info("gateway.complete.start",
		"req_id", rid,
		"model", model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.User.Text),
		"has_image", hasImage,
	)

	body := map[string]any{
		"model":       model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": userContent(req.User)},
		},
	}

	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := gateway.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("gateway.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &gateway.Error{StatusCode: status, Message: "chat completion request failed", Cause: err}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("gateway.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &gateway.Error{Message: "decode chat completion response", Cause: err}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("gateway.complete.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &gateway.Error{Message: "no choices in chat completion response"}
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.log.Info("gateway.complete.ok",
		"req_id", rid,
		"model", model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// userContent shapes the user message: a bare string for text-only requests,
// content parts with an image_url attachment for vision requests.
func userContent(u gateway.UserContent) any {
	if u.ImageDataURL == "" {
		return u.Text
	}
	return []map[string]any{
		{"type": "text", "text": u.Text},
		{"type": "image_url", "image_url": map[string]any{"url": u.ImageDataURL}},
	}
}
