package models

import (
	"strings"
	"time"
)

// AnalysisType selects which fields of AnalysisInput are meaningful.
type AnalysisType int

const (
	AnalysisTypeURL AnalysisType = iota
	AnalysisTypeHTML
	AnalysisTypePDF
	AnalysisTypeWordDocument
)

func (t AnalysisType) String() string {
	switch t {
	case AnalysisTypeURL:
		return "url"
	case AnalysisTypeHTML:
		return "html"
	case AnalysisTypePDF:
		return "pdf"
	case AnalysisTypeWordDocument:
		return "word"
	default:
		return "unknown"
	}
}

// IsDocument reports whether the input carries file bytes rather than web content.
func (t AnalysisType) IsDocument() bool {
	return t == AnalysisTypePDF || t == AnalysisTypeWordDocument
}

// AnalysisInput is built by the HTTP boundary for one analysis call.
type AnalysisInput struct {
	Type AnalysisType

	// Content is raw HTML (HTML).
	Content string

	// FileContent holds the uploaded bytes (PDF, WordDocument).
	FileContent        []byte
	ExtractFileContent bool

	// URL is the page to analyze (URL) or the page the HTML came from (HTML).
	URL               string
	ExtractURLContent bool

	GetImageDescriptions bool
}

// Severity vocabulary for findings.
const (
	SeverityLow         = "Low"
	SeverityMedium      = "Medium"
	SeverityHigh        = "High"
	SeverityImprovement = "Improvement"
	SeverityUnknown     = "Unknown"
)

// NormalizeSeverity maps s case-insensitively onto the severity vocabulary.
func NormalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "improvement":
		return SeverityImprovement
	default:
		return SeverityUnknown
	}
}

type AnalysisResult struct {
	Items       []AnalysisItem `json:"items"`
	Explanation string         `json:"explanation"`
}

// NewErrorResult is an empty result carrying only an explanation.
func NewErrorResult(explanation string) *AnalysisResult {
	return &AnalysisResult{Items: []AnalysisItem{}, Explanation: explanation}
}

// AnalysisItem is one accessibility finding attributed to one element.
type AnalysisItem struct {
	Element                        string             `json:"element"`
	Attributes                     []ElementAttribute `json:"attributes"`
	Issue                          string             `json:"issue"`
	Recommendation                 string             `json:"recommendation"`
	ImageDescriptionRecommendation string             `json:"imageDescriptionRecommendation,omitempty"`
	Severity                       string             `json:"severity"`
	Source                         string             `json:"source"`
	Details                        string             `json:"details"`
}

type ElementAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UrlInput is the body of the URL analysis and caption endpoints.
type UrlInput struct {
	Url                       string `json:"url"`
	ExtractHtmlContentFromUrl *bool  `json:"extractHtmlContentFromUrl,omitempty"`
	GetImageDescriptions      *bool  `json:"getImageDescriptions,omitempty"`
}

// Upload is a transient blob handed to the model by signed URL.
type Upload struct {
	ID          string     `json:"id" db:"id"`
	ObjectKey   string     `json:"object_key" db:"object_key"`
	ContentType string     `json:"content_type" db:"content_type"`
	Size        int64      `json:"size" db:"size"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// AnalysisRun records metadata about one analysis call. Findings are not stored.
type AnalysisRun struct {
	ID          string     `json:"id" db:"id"`
	RequestID   string     `json:"request_id,omitempty" db:"request_id"`
	InputType   string     `json:"input_type" db:"input_type"`
	Strategy    string     `json:"strategy" db:"strategy"`
	SourceURL   string     `json:"source_url,omitempty" db:"source_url"`
	Status      string     `json:"status" db:"status"`
	ItemCount   int        `json:"item_count" db:"item_count"`
	Error       string     `json:"error,omitempty" db:"error"`
	DurationMS  int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
