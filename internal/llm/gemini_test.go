package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("nil response = %q", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"issues":`), genai.Text(`[]}`)}}},
		},
	}
	if got := responseText(resp); got != `{"issues":[]}` {
		t.Errorf("responseText = %q", got)
	}

	empty := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}
	if got := responseText(empty); got != "" {
		t.Errorf("empty candidate = %q", got)
	}
}
