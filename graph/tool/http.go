package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dshills/stategraph/graph/model"
)

// maxHTTPBody caps the response text handed back to the model.
const maxHTTPBody = 10000

// HTTPTool lets a model issue GET and POST requests.
//
// Arguments:
//   - url: target URL (required)
//   - method: "GET" or "POST" (default "GET")
//   - body: request body for POST
//   - headers: JSON object of request headers
//
// The result is a JSON object with status_code and body. Non-2xx responses
// are results, not errors, so the model can react to them.
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool creates an HTTP tool. A nil client selects http.DefaultClient;
// timeouts come from the call context.
func NewHTTPTool(client *http.Client) *HTTPTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTool{client: client}
}

// Name implements Tool.
func (h *HTTPTool) Name() string {
	return "http_request"
}

// Describe implements Describer.
func (h *HTTPTool) Describe() model.ToolSpec {
	return model.ToolSpec{
		Name:        h.Name(),
		Description: "Make an HTTP GET or POST request and return the status code and body",
		Schema: Schema([]Param{
			{Name: "url", Description: "Target URL", Required: true},
			{Name: "method", Description: "GET or POST"},
			{Name: "body", Description: "Request body for POST"},
			{Name: "headers", Type: "object", Description: "Request headers"},
		}),
	}
}

// Call implements Tool.
func (h *HTTPTool) Call(ctx context.Context, args Arguments) (string, error) {
	urlStr := args["url"]
	if urlStr == "" {
		return "", fmt.Errorf("url parameter required")
	}

	method := http.MethodGet
	if m := args["method"]; m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return "", fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if b := args["body"]; b != "" {
		body = bytes.NewBufferString(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if raw := args["headers"]; raw != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return "", fmt.Errorf("headers must be a JSON object of strings: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	out, err := json.Marshal(struct {
		StatusCode int    `json:"status_code"`
		Body       string `json:"body"`
	}{resp.StatusCode, string(respBody)})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
