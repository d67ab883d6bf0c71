package llm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// ChatInvoker sends the prompt as one user message to a chat-completion deployment.
type ChatInvoker struct {
	endpoint   Endpoint
	deployment string
	client     *http.Client
	logger     *utils.Logger
}

func NewChatInvoker(endpoint Endpoint, deployment string, client *http.Client, logger *utils.Logger) *ChatInvoker {
	return &ChatInvoker{
		endpoint:   endpoint,
		deployment: deployment,
		client:     client,
		logger:     logger,
	}
}

func (c *ChatInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	}

	path := "chat/completions"
	if c.endpoint.isAzure() {
		path = "deployments/" + url.PathEscape(c.deployment) + "/chat/completions"
	} else {
		req.Model = c.deployment
	}

	var resp chatResponse
	if err := c.endpoint.do(ctx, c.client, http.MethodPost, path, nil, req, &resp); err != nil {
		c.logger.Error("chat completion failed", "deployment", c.deployment, "error", err)
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", utils.NewUpstreamError("the chat completion returned no content", nil)
	}

	return resp.Choices[0].Message.Content, nil
}
