// Package gemini is the thin HTTP client for the generateContent endpoint.
// It knows nothing about books: it sends a prompt, unwraps the response
// envelope and rejects truncated output. Credentials are passed per call,
// never read from globals, so one client serves any number of users.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookrater/internal/logger"
	"bookrater/internal/metrics"
)

// Credentials identify one caller for one request.
type Credentials struct {
	APIKey string
	Model  string
}

// Client talks to a generateContent-compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Generate sends prompt to the endpoint under creds and returns the raw
// model text. The API key travels only in the query string; logs carry a
// redacted form.
func (c *Client) Generate(ctx context.Context, creds Credentials, prompt string) (string, error) {
	if creds.APIKey == "" {
		return "", ErrNoAPIKey
	}

	log := logger.For(ctx).WithFields(map[string]interface{}{
		"model": creds.Model,
		"key":   logger.RedactKey(creds.APIKey),
	})

	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.3,
			"topK":            1,
			"topP":            1,
			"maxOutputTokens": 2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, creds.Model, creds.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generation endpoint: %w", err)
	}
	defer resp.Body.Close()
	metrics.ModelRequestDuration.WithLabelValues(creds.Model).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{Status: resp.StatusCode}
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil {
			terr.Reason = failure.Error.Message
		}
		log.WithField("status", resp.StatusCode).Warn("generation request failed")
		return "", terr
	}

	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
				Text string `json:"text"`
				Role string `json:"role"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", &FormatError{Detail: "body is not JSON"}
	}
	if len(envelope.Candidates) == 0 {
		return "", &FormatError{Detail: "no candidates"}
	}

	cand := envelope.Candidates[0]
	// Two documented payload shapes: content.parts[0].text (with or
	// without a role tag) and a flat content.text. Nothing else counts.
	var text string
	switch {
	case len(cand.Content.Parts) > 0 && cand.Content.Parts[0].Text != "":
		text = cand.Content.Parts[0].Text
	case cand.Content.Text != "":
		text = cand.Content.Text
	}

	// A length-limited reply is a failure, never parser input: brace
	// balancing could make the cut-off text parse with entries missing.
	if cand.FinishReason == "MAX_TOKENS" {
		log.Warn("generation stopped at token limit")
		return "", &TruncatedError{Text: text}
	}
	if text == "" {
		return "", &FormatError{Detail: "candidate carries no text"}
	}
	return text, nil
}
