package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/web-accessibility-api/internal/extractor"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/prompt"
	"github.com/BerylCAtieno/web-accessibility-api/internal/services"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	maxJSONBody = 1 << 20
)

type AccessibilityHandler struct {
	service       services.AccessibilityService
	maxUploadSize int64
	logger        *utils.Logger
}

func NewAccessibilityHandler(service services.AccessibilityService, maxUploadSize int64, logger *utils.Logger) *AccessibilityHandler {
	return &AccessibilityHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

type analyzeFunc func(context.Context, models.AnalysisInput) (*models.AnalysisResult, error)

func (h *AccessibilityHandler) URLWithChat(w http.ResponseWriter, r *http.Request) {
	h.analyzeURL(w, r, h.service.AnalyzeWithChat)
}

func (h *AccessibilityHandler) URLWithAssistant(w http.ResponseWriter, r *http.Request) {
	h.analyzeURL(w, r, h.service.AnalyzeWithAssistant)
}

func (h *AccessibilityHandler) HTMLWithChat(w http.ResponseWriter, r *http.Request) {
	h.analyzeHTML(w, r, h.service.AnalyzeWithChat)
}

func (h *AccessibilityHandler) HTMLWithAssistant(w http.ResponseWriter, r *http.Request) {
	h.analyzeHTML(w, r, h.service.AnalyzeWithAssistant)
}

func (h *AccessibilityHandler) PDFWithChat(w http.ResponseWriter, r *http.Request) {
	h.analyzeDocument(w, r, models.AnalysisTypePDF, h.service.AnalyzeWithChat)
}

func (h *AccessibilityHandler) PDFWithAssistant(w http.ResponseWriter, r *http.Request) {
	h.analyzeDocument(w, r, models.AnalysisTypePDF, h.service.AnalyzeWithAssistant)
}

func (h *AccessibilityHandler) WordWithChat(w http.ResponseWriter, r *http.Request) {
	h.analyzeDocument(w, r, models.AnalysisTypeWordDocument, h.service.AnalyzeWithChat)
}

func (h *AccessibilityHandler) WordWithAssistant(w http.ResponseWriter, r *http.Request) {
	h.analyzeDocument(w, r, models.AnalysisTypeWordDocument, h.service.AnalyzeWithAssistant)
}

func (h *AccessibilityHandler) analyzeURL(w http.ResponseWriter, r *http.Request, analyze analyzeFunc) {
	var body models.UrlInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondAnalysisError(w, r, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}
	if strings.TrimSpace(body.Url) == "" {
		respondAnalysisError(w, r, h.logger, utils.NewBadRequestError("URL is empty"))
		return
	}

	input := models.AnalysisInput{
		Type:                 models.AnalysisTypeURL,
		URL:                  strings.TrimSpace(body.Url),
		ExtractURLContent:    boolOr(body.ExtractHtmlContentFromUrl, true),
		GetImageDescriptions: boolOr(body.GetImageDescriptions, false),
	}

	h.run(w, r, input, analyze)
}

// analyzeHTML accepts the page either as a raw body or as a JSON string.
func (h *AccessibilityHandler) analyzeHTML(w http.ResponseWriter, r *http.Request, analyze analyzeFunc) {
	getImages, err := queryBool(r, "getImageDescriptions", false)
	if err != nil {
		respondAnalysisError(w, r, h.logger, err)
		return
	}

	data, err := readBody(w, r, h.maxUploadSize)
	if err != nil {
		respondAnalysisError(w, r, h.logger, err)
		return
	}

	content := extractor.DecodeText(data)
	if trimmed := strings.TrimSpace(content); strings.HasPrefix(trimmed, `"`) {
		var s string
		if json.Unmarshal([]byte(trimmed), &s) == nil {
			content = s
		}
	}
	if strings.TrimSpace(content) == "" {
		respondAnalysisError(w, r, h.logger, utils.NewBadRequestError(prompt.EmptyHTMLMessage))
		return
	}

	input := models.AnalysisInput{
		Type:                 models.AnalysisTypeHTML,
		Content:              content,
		URL:                  strings.TrimSpace(r.URL.Query().Get("url")),
		GetImageDescriptions: getImages,
	}

	h.run(w, r, input, analyze)
}

// analyzeDocument reads the multipart "file" field. The sniffed content type
// wins over the endpoint, so a DOCX posted to a PDF endpoint is analyzed as Word.
func (h *AccessibilityHandler) analyzeDocument(w http.ResponseWriter, r *http.Request, fallback models.AnalysisType, analyze analyzeFunc) {
	extract, err := queryBool(r, "extractFileContent", true)
	if err != nil {
		respondAnalysisError(w, r, h.logger, err)
		return
	}

	data, err := h.readUpload(w, r)
	if err != nil {
		respondAnalysisError(w, r, h.logger, err)
		return
	}

	docType := fallback
	switch mtype := mimetype.Detect(data); {
	case mtype.Is(mimePDF):
		docType = models.AnalysisTypePDF
	case mtype.Is(mimeDOCX):
		docType = models.AnalysisTypeWordDocument
	}

	h.logger.Info("Document received",
		"endpoint_type", fallback.String(),
		"detected_type", docType.String(),
		"size", len(data),
		"request_id", utils.RequestIDFromContext(r.Context()))

	input := models.AnalysisInput{
		Type:               docType,
		FileContent:        data,
		ExtractFileContent: extract,
	}

	h.run(w, r, input, analyze)
}

func (h *AccessibilityHandler) run(w http.ResponseWriter, r *http.Request, input models.AnalysisInput, analyze analyzeFunc) {
	result, err := analyze(r.Context(), input)
	if err != nil {
		respondAnalysisError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *AccessibilityHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	tooLarge := utils.NewBadRequestError(fmt.Sprintf("File size exceeds %s limit", formatSize(h.maxUploadSize)))

	if r.ContentLength > h.maxUploadSize+maxJSONBody {
		return nil, tooLarge
	}

	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+maxJSONBody)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		return nil, utils.NewBadRequestError("Invalid form data")
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, utils.NewBadRequestError("The uploaded file is empty or missing.")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		return nil, utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.maxUploadSize {
		return nil, tooLarge
	}
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("The uploaded file is empty or missing.")
	}

	return data, nil
}

// ImageURL captions an image. The body is {"url": "..."} or a bare JSON string.
func (h *AccessibilityHandler) ImageURL(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		respondError(w, r, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}

	imageURL, err := parseImageURL(data)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	captions := h.service.DescribeImage(r.Context(), imageURL)
	respondJSON(w, h.logger, http.StatusOK, captions)
}

func parseImageURL(data []byte) (string, error) {
	data = bytes.TrimSpace(data)

	var imageURL string
	switch {
	case len(data) == 0:
	case data[0] == '"':
		if err := json.Unmarshal(data, &imageURL); err != nil {
			return "", utils.NewBadRequestError("Invalid request body")
		}
	default:
		var body models.UrlInput
		if err := json.Unmarshal(data, &body); err != nil {
			return "", utils.NewBadRequestError("Invalid request body")
		}
		imageURL = body.Url
	}

	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", utils.NewBadRequestError("The URL cannot be null or empty.")
	}
	return imageURL, nil
}

func (h *AccessibilityHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, r, h.logger, utils.NewBadRequestError("Run ID is required"))
		return
	}

	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, run)
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, utils.NewBadRequestError(fmt.Sprintf("Request body exceeds %s limit", formatSize(limit)))
		}
		return nil, utils.NewBadRequestError("Failed to read request body")
	}
	return data, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, utils.NewBadRequestError(fmt.Sprintf("Query parameter %s must be true or false", name))
	}
	return v, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func formatSize(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
