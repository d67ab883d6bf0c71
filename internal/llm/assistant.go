package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Run statuses reported by the assistants API.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
)

type thread struct {
	ID string `json:"id"`
}

type run struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type threadMessages struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text *struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// AssistantInvoker runs the prompt on a thread against a preconfigured
// assistant and polls the run until it leaves queued/in_progress.
type AssistantInvoker struct {
	endpoint     Endpoint
	assistantID  string
	client       *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *utils.Logger
}

func NewAssistantInvoker(endpoint Endpoint, assistantID string, client *http.Client, pollInterval, pollTimeout time.Duration, logger *utils.Logger) *AssistantInvoker {
	return &AssistantInvoker{
		endpoint:     endpoint,
		assistantID:  assistantID,
		client:       client,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger.With("assistant_id", assistantID),
	}
}

func (a *AssistantInvoker) headers() map[string]string {
	if a.endpoint.isAzure() {
		return nil
	}
	return map[string]string{"OpenAI-Beta": "assistants=v2"}
}

func (a *AssistantInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	var th thread
	if err := a.endpoint.do(ctx, a.client, http.MethodPost, "threads", a.headers(), struct{}{}, &th); err != nil {
		return "", err
	}
	defer a.deleteThread(ctx, th.ID)

	threadPath := "threads/" + url.PathEscape(th.ID)

	msg := Message{Role: "user", Content: prompt}
	if err := a.endpoint.do(ctx, a.client, http.MethodPost, threadPath+"/messages", a.headers(), msg, nil); err != nil {
		return "", err
	}

	var r run
	body := map[string]string{"assistant_id": a.assistantID}
	if err := a.endpoint.do(ctx, a.client, http.MethodPost, threadPath+"/runs", a.headers(), body, &r); err != nil {
		return "", err
	}

	a.logger.Debug("assistant run started", "thread_id", th.ID, "run_id", r.ID)

	if err := a.waitForRun(ctx, threadPath, &r); err != nil {
		return "", err
	}

	var msgs threadMessages
	if err := a.endpoint.do(ctx, a.client, http.MethodGet, threadPath+"/messages", a.headers(), nil, &msgs); err != nil {
		return "", err
	}

	for _, m := range msgs.Data {
		if m.Role != "assistant" {
			continue
		}
		for _, c := range m.Content {
			if c.Type != "text" || c.Text == nil {
				continue
			}
			if json.Valid([]byte(utils.StripCodeFences(c.Text.Value))) {
				return c.Text.Value, nil
			}
		}
	}

	return "", utils.NewUpstreamError("the assistant returned no response", nil)
}

func (a *AssistantInvoker) waitForRun(ctx context.Context, threadPath string, r *run) error {
	deadline := time.Now().Add(a.pollTimeout)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for r.Status == RunStatusQueued || r.Status == RunStatusInProgress {
		if time.Now().After(deadline) {
			return utils.NewTimeoutError(fmt.Sprintf("the assistant run did not finish within %s", a.pollTimeout), nil)
		}

		select {
		case <-ctx.Done():
			return utils.NewUpstreamError("waiting for the assistant run was interrupted", ctx.Err())
		case <-ticker.C:
		}

		if err := a.endpoint.do(ctx, a.client, http.MethodGet, threadPath+"/runs/"+url.PathEscape(r.ID), a.headers(), nil, r); err != nil {
			return err
		}
	}

	if r.Status != RunStatusCompleted {
		reason := r.Status
		if r.LastError != nil && r.LastError.Message != "" {
			reason = r.Status + ": " + r.LastError.Message
		}
		return utils.NewUpstreamError("the assistant run ended with status "+reason, nil)
	}
	return nil
}

// deleteThread is best effort; a failure only leaves a thread behind on the provider.
func (a *AssistantInvoker) deleteThread(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := a.endpoint.do(ctx, a.client, http.MethodDelete, "threads/"+url.PathEscape(id), a.headers(), nil, nil); err != nil {
		a.logger.Warn("failed to delete assistant thread", "thread_id", id, "error", err)
	}
}
