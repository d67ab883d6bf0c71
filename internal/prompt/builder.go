package prompt

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/web-accessibility-api/internal/extractor"
	"github.com/BerylCAtieno/web-accessibility-api/internal/htmlutil"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// PageFetcher downloads the HTML of a page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// DocumentStager stores a document and returns a time-limited URL the model can read it from.
type DocumentStager interface {
	StageDocument(ctx context.Context, data []byte) (string, error)
}

// Builder turns an AnalysisInput into the prompt and the source URL used
// later to resolve relative image links.
type Builder struct {
	store   *Store
	pages   PageFetcher
	uploads DocumentStager
}

func NewBuilder(store *Store, pages PageFetcher, uploads DocumentStager) *Builder {
	return &Builder{store: store, pages: pages, uploads: uploads}
}

func (b *Builder) Build(ctx context.Context, input models.AnalysisInput) (string, string, error) {
	var content, sourceURL string

	switch input.Type {
	case models.AnalysisTypeURL:
		if htmlutil.CheckAbsoluteURL(input.URL) == "" {
			return "", "", utils.NewBadRequestError(fmt.Sprintf("Invalid URL: %s", input.URL))
		}

		if input.ExtractURLContent {
			page, err := b.pages.FetchPage(ctx, input.URL)
			if err != nil {
				return "", "", err
			}
			content, err = htmlutil.FixHTMLContent(input.URL, page)
			if err != nil {
				return "", "", err
			}
		} else {
			content = input.URL
		}
		sourceURL = input.URL

	case models.AnalysisTypePDF, models.AnalysisTypeWordDocument:
		if input.ExtractFileContent {
			if len(input.FileContent) == 0 {
				return "", "", utils.NewBadRequestError(emptyContentMessage(input.Type))
			}
			var err error
			content, err = extractor.ExtractDocument(input.Type, input.FileContent)
			if err != nil {
				return "", "", err
			}
		} else if len(input.FileContent) > 0 {
			if b.uploads == nil {
				return "", "", utils.NewInternalError("document storage is not configured")
			}
			var err error
			content, err = b.uploads.StageDocument(ctx, input.FileContent)
			if err != nil {
				return "", "", err
			}
		}

	case models.AnalysisTypeHTML:
		if input.Content == "" {
			return "", "", utils.NewBadRequestError(EmptyHTMLMessage)
		}

		sourceURL = input.URL
		if sourceURL == "" {
			content = input.Content
		} else {
			var err error
			content, err = htmlutil.FixHTMLContent(sourceURL, input.Content)
			if err != nil {
				return "", "", err
			}
		}

	default:
		return "", "", utils.NewBadRequestError(fmt.Sprintf("Unsupported analysis type: %s", input.Type))
	}

	if content == "" {
		return "", "", utils.NewBadRequestError(emptyContentMessage(input.Type))
	}

	prompt, err := b.store.Render(input.Type, content)
	if err != nil {
		return "", "", err
	}
	return prompt, sourceURL, nil
}

// EmptyHTMLMessage is returned for HTML input with no markup.
const EmptyHTMLMessage = "HTML content cannot be empty."

func emptyContentMessage(t models.AnalysisType) string {
	switch t {
	case models.AnalysisTypeURL:
		return "The page returned no content."
	case models.AnalysisTypePDF, models.AnalysisTypeWordDocument:
		return "File content cannot be empty."
	default:
		return EmptyHTMLMessage
	}
}
