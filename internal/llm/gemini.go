package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// GeminiInvoker is a single-turn strategy backed by Google Gemini.
type GeminiInvoker struct {
	client *genai.Client
	model  string
	logger *utils.Logger
}

func NewGeminiInvoker(ctx context.Context, apiKey, model string, logger *utils.Logger) (*GeminiInvoker, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiInvoker{client: cl, model: strings.TrimSpace(model), logger: logger}, nil
}

func (g *GeminiInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Error("gemini generation failed", "model", g.model, "error", err)
		return "", utils.NewUpstreamError("the Gemini model call failed", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", utils.NewUpstreamError("the Gemini model returned no content", nil)
	}
	return text, nil
}

func (g *GeminiInvoker) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate with content.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
