package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 4 << 20
)

// HTTPConfig describes how to reach a routing service over HTTP.
type HTTPConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// HTTPInvoker posts JSON-RPC envelopes to a single endpoint. Safe for
// concurrent use.
type HTTPInvoker struct {
	cfg    HTTPConfig
	client *http.Client
	nextID atomic.Int64
}

func NewHTTPInvoker(cfg HTTPConfig) (*HTTPInvoker, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPInvoker{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Invoke posts one operation call and decodes the response envelope.
func (h *HTTPInvoker) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	id := h.nextID.Add(1)
	body, err := encodeRequest(id, op, args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		if snippet != "" {
			return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, snippet)
		}
		return nil, fmt.Errorf("%s: status %d", op, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, envelope.Error)
	}
	if len(envelope.Result) == 0 {
		return nil, fmt.Errorf("%s: empty result", op)
	}
	return envelope.Result, nil
}
