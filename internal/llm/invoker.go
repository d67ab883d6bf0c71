package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BerylCAtieno/web-accessibility-api/internal/config"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Invoker submits a prompt to a model and returns its raw text reply.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Endpoint addresses an OpenAI-compatible API, either Azure OpenAI or the
// plain OpenAI layout.
type Endpoint struct {
	BaseURL    string
	APIKey     string
	Style      string
	APIVersion string
}

func EndpointFromConfig(cfg config.Config) Endpoint {
	return Endpoint{
		BaseURL:    cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIAPIKey,
		Style:      cfg.OpenAIAPIStyle,
		APIVersion: cfg.OpenAIAPIVersion,
	}
}

func (e Endpoint) isAzure() bool {
	return e.Style != config.APIStyleOpenAI
}

func (e Endpoint) url(path string) string {
	base := strings.TrimRight(e.BaseURL, "/")
	path = strings.TrimLeft(path, "/")
	if !e.isAzure() {
		return base + "/" + path
	}
	q := url.Values{}
	q.Set("api-version", e.APIVersion)
	return base + "/openai/" + path + "?" + q.Encode()
}

func (e Endpoint) authorize(req *http.Request) {
	if e.isAzure() {
		req.Header.Set("api-key", e.APIKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (e Endpoint) do(ctx context.Context, client *http.Client, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	e.authorize(req)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return utils.NewUpstreamError("failed to reach the model endpoint", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return utils.NewUpstreamError("failed to read the model response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return utils.NewUpstreamError(
			fmt.Sprintf("model endpoint returned status %d: %s", resp.StatusCode, utils.Truncate(msg, 300)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return utils.NewUpstreamError("failed to unmarshal the model response", err)
	}
	return nil
}
