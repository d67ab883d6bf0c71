package analyzer

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/web-accessibility-api/internal/htmlutil"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Captioner returns candidate descriptions for an image. It returns an empty
// slice, never an error, when the image cannot be captioned.
type Captioner interface {
	Caption(ctx context.Context, imageURL string) []string
}

var imageElements = map[string]bool{"img": true, "source": true}

var imageAttributes = map[string]bool{"src": true, "href": true, "data-cfsrc": true, "srcset": true}

// Enricher fills ImageDescriptionRecommendation on image findings.
type Enricher struct {
	captioner   Captioner
	concurrency int
	logger      *utils.Logger
}

func NewEnricher(captioner Captioner, concurrency int, logger *utils.Logger) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{captioner: captioner, concurrency: concurrency, logger: logger}
}

// Enrich mutates items in place. Items are captioned in parallel; the
// attributes of one item are tried in order and the last successful caption wins.
func (e *Enricher) Enrich(ctx context.Context, items []models.AnalysisItem, sourceURL string) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i := range items {
		if !imageElements[items[i].Element] {
			continue
		}
		item := &items[i]
		g.Go(func() error {
			e.enrichItem(ctx, item, sourceURL)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Enricher) enrichItem(ctx context.Context, item *models.AnalysisItem, sourceURL string) {
	for _, attr := range item.Attributes {
		if !imageAttributes[attr.Name] {
			continue
		}

		value := attr.Value
		if attr.Name == "srcset" {
			value = htmlutil.FirstSrcsetURL(value)
		}

		imageURL := htmlutil.ResolveAgainst(sourceURL, value)
		if imageURL == "" {
			e.logger.Debug("skipping unresolvable image reference", "attribute", attr.Name, "value", attr.Value)
			continue
		}

		if ctx.Err() != nil {
			return
		}

		captions := e.captioner.Caption(ctx, imageURL)
		if len(captions) == 0 {
			continue
		}
		item.ImageDescriptionRecommendation = strings.Join(captions, ", ")
	}
}
