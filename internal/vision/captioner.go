// Package vision wraps the image-analysis API that proposes alternative text for images.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/BerylCAtieno/web-accessibility-api/internal/htmlutil"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Limits accepted by the image-analysis service.
const (
	MaxImageSize = 6 << 20
	MinDimension = 50
	MaxDimension = 10240

	apiVersion = "2024-02-01"
)

// ImageFetcher performs the GET used to check an image before captioning it.
type ImageFetcher interface {
	Get(ctx context.Context, url, accept string) (*http.Response, error)
}

type Client struct {
	endpoint string
	apiKey   string
	api      *http.Client
	images   ImageFetcher
	logger   *utils.Logger
}

func NewClient(endpoint, apiKey string, api *http.Client, images ImageFetcher, logger *utils.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		api:      api,
		images:   images,
		logger:   logger,
	}
}

type analyzeResponse struct {
	DenseCaptionsResult struct {
		Values []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"values"`
	} `json:"denseCaptionsResult"`
}

// Caption returns dense captions for imageURL, or an empty slice when the
// image fails a precondition or the service call fails.
func (c *Client) Caption(ctx context.Context, imageURL string) []string {
	if err := c.CheckImage(ctx, imageURL); err != nil {
		c.logger.Debug("image rejected for captioning", "url", imageURL, "error", err)
		return []string{}
	}

	captions, err := c.DenseCaptions(ctx, imageURL)
	if err != nil {
		c.logger.Warn("image captioning failed", "url", imageURL, "error", err)
		return []string{}
	}
	return captions
}

// CheckImage downloads imageURL and verifies it is an image the service accepts.
func (c *Client) CheckImage(ctx context.Context, imageURL string) error {
	if htmlutil.CheckAbsoluteURL(imageURL) == "" {
		return utils.NewBadRequestError(fmt.Sprintf("Invalid URL: %s", imageURL))
	}

	resp, err := c.images.Get(ctx, imageURL, "image/*")
	if err != nil {
		return utils.NewUpstreamError("failed to fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return utils.NewBadRequestError("image not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.NewBadRequestError(fmt.Sprintf("image request failed with status %d", resp.StatusCode))
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return utils.NewBadRequestError(fmt.Sprintf("unsupported content type %q", contentType))
	}

	if resp.ContentLength > MaxImageSize {
		return utils.NewBadRequestError(fmt.Sprintf("image too large: %d bytes", resp.ContentLength))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return utils.NewUpstreamError("failed to read image", err)
	}
	if len(data) > MaxImageSize {
		return utils.NewBadRequestError(fmt.Sprintf("image too large: exceeds %d bytes", MaxImageSize))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return utils.NewBadRequestError(fmt.Sprintf("unsupported image format: %v", err))
	}
	if cfg.Width < MinDimension || cfg.Height < MinDimension || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return utils.NewBadRequestError(fmt.Sprintf("%s image is %dx%d, outside %d-%d pixels", format, cfg.Width, cfg.Height, MinDimension, MaxDimension))
	}

	return nil
}

// DenseCaptions asks the service for gender-neutral dense captions of imageURL.
func (c *Client) DenseCaptions(ctx context.Context, imageURL string) ([]string, error) {
	q := url.Values{}
	q.Set("api-version", apiVersion)
	q.Set("features", "denseCaptions")
	q.Set("gender-neutral-caption", "true")
	endpoint := c.endpoint + "/computervision/imageanalysis:analyze?" + q.Encode()

	body, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, utils.NewUpstreamError("failed to reach the vision endpoint", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, utils.NewUpstreamError("failed to read the vision response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewUpstreamError(
			fmt.Sprintf("vision endpoint returned status %d: %s", resp.StatusCode, utils.Truncate(strings.TrimSpace(string(data)), 300)), nil)
	}

	var result analyzeResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, utils.NewUpstreamError("failed to unmarshal the vision response", err)
	}

	captions := make([]string, 0, len(result.DenseCaptionsResult.Values))
	for _, v := range result.DenseCaptionsResult.Values {
		if v.Text != "" {
			captions = append(captions, v.Text)
		}
	}
	return captions, nil
}
