package services

import (
	"context"
	"fmt"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/analyzer"
	"github.com/BerylCAtieno/web-accessibility-api/internal/llm"
	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/repository"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Strategy names, used in error messages, logs, metrics and the run log.
const (
	StrategyChat      = "chat"
	StrategyAssistant = "assistant"
)

type AccessibilityService interface {
	AnalyzeWithChat(ctx context.Context, input models.AnalysisInput) (*models.AnalysisResult, error)
	AnalyzeWithAssistant(ctx context.Context, input models.AnalysisInput) (*models.AnalysisResult, error)
	DescribeImage(ctx context.Context, imageURL string) []string
	GetRun(ctx context.Context, id string) (*models.AnalysisRun, error)
}

// PromptBuilder prepares the prompt and the source URL for an input.
type PromptBuilder interface {
	Build(ctx context.Context, input models.AnalysisInput) (string, string, error)
}

// AccessibilityDeps are the collaborators of the analysis pipeline.
type AccessibilityDeps struct {
	Builder      PromptBuilder
	Chat         llm.Invoker
	WebAssistant llm.Invoker
	PDFAssistant llm.Invoker
	Parser       *analyzer.Parser
	Enricher     *analyzer.Enricher
	Captioner    analyzer.Captioner
	Runs         repository.RunRepository
	Metrics      *metrics.Metrics
	Logger       *utils.Logger
}

type accessibilityService struct {
	AccessibilityDeps
	now func() time.Time
}

func NewAccessibilityService(deps AccessibilityDeps) AccessibilityService {
	return &accessibilityService{AccessibilityDeps: deps, now: time.Now}
}

func (s *accessibilityService) AnalyzeWithChat(ctx context.Context, input models.AnalysisInput) (*models.AnalysisResult, error) {
	return s.analyze(ctx, input, StrategyChat, s.Chat)
}

// AnalyzeWithAssistant uses the PDF assistant for documents and the web assistant otherwise.
func (s *accessibilityService) AnalyzeWithAssistant(ctx context.Context, input models.AnalysisInput) (*models.AnalysisResult, error) {
	invoker := s.WebAssistant
	if input.Type.IsDocument() {
		invoker = s.PDFAssistant
	}
	return s.analyze(ctx, input, StrategyAssistant, invoker)
}

func (s *accessibilityService) analyze(ctx context.Context, input models.AnalysisInput, strategy string, invoker llm.Invoker) (*models.AnalysisResult, error) {
	start := s.now()
	requestID := utils.RequestIDFromContext(ctx)
	logger := s.Logger.With("strategy", strategy, "input_type", input.Type.String(), "request_id", requestID)

	run := &models.AnalysisRun{
		ID:        utils.GenerateID(),
		RequestID: requestID,
		InputType: input.Type.String(),
		Strategy:  strategy,
		Status:    models.RunStatusRunning,
		CreatedAt: start,
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		logger.Warn("Failed to record analysis run", "error", err)
		run = nil
	}

	result, sourceURL, err := s.pipeline(ctx, input, invoker)
	elapsed := s.now().Sub(start)

	if err != nil {
		if utils.KindOf(err) != utils.KindInvalidArgument {
			err = fmt.Errorf("Error analyzing the content using %s: %w", strategy, err)
		}
		logger.Error("Analysis failed", "error", err, "kind", utils.KindOf(err).String(), "duration_ms", elapsed.Milliseconds())
		s.Metrics.ObserveAnalysis(strategy, input.Type.String(), metrics.OutcomeFailure, elapsed)
		s.completeRun(run, sourceURL, nil, err, elapsed)
		return nil, err
	}

	for severity, n := range countBySeverity(result.Items) {
		s.Metrics.AddFindings(severity, n)
	}
	s.Metrics.ObserveAnalysis(strategy, input.Type.String(), metrics.OutcomeSuccess, elapsed)
	s.completeRun(run, sourceURL, result, nil, elapsed)

	logger.Info("Analysis completed", "items", len(result.Items), "duration_ms", elapsed.Milliseconds())
	return result, nil
}

// pipeline runs build, invoke, parse and enrich strictly in sequence.
func (s *accessibilityService) pipeline(ctx context.Context, input models.AnalysisInput, invoker llm.Invoker) (*models.AnalysisResult, string, error) {
	prompt, sourceURL, err := s.Builder.Build(ctx, input)
	if err != nil {
		return nil, sourceURL, err
	}

	raw, err := invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, sourceURL, err
	}

	result, err := s.Parser.Parse(raw)
	if err != nil {
		return nil, sourceURL, err
	}

	if input.GetImageDescriptions && len(result.Items) > 0 {
		s.Enricher.Enrich(ctx, result.Items, sourceURL)
	}

	return result, sourceURL, nil
}

// completeRun records the outcome with a context detached from the request,
// so a cancelled request still leaves a terminal status behind.
func (s *accessibilityService) completeRun(run *models.AnalysisRun, sourceURL string, result *models.AnalysisResult, err error, elapsed time.Duration) {
	if run == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	completed := s.now()
	run.SourceURL = sourceURL
	run.DurationMS = elapsed.Milliseconds()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = models.RunStatusSucceeded
		run.ItemCount = len(result.Items)
	}

	if err := s.Runs.Complete(ctx, run); err != nil {
		s.Logger.Warn("Failed to complete analysis run", "run_id", run.ID, "error", err)
	}
}

// DescribeImage never fails: an unusable image yields an empty list.
func (s *accessibilityService) DescribeImage(ctx context.Context, imageURL string) []string {
	captions := s.Captioner.Caption(ctx, imageURL)
	if len(captions) == 0 {
		s.Metrics.ObserveCaption(metrics.OutcomeEmpty)
		return []string{}
	}
	s.Metrics.ObserveCaption(metrics.OutcomeSuccess)
	return captions
}

// GetRun looks id up as a run ID first, then as the request ID of the
// latest run started under it.
func (s *accessibilityService) GetRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err == nil && run == nil {
		run, err = s.Runs.LatestByRequestID(ctx, id)
	}
	if err != nil {
		s.Logger.Error("Failed to load analysis run", "run_id", id, "error", err)
		return nil, utils.NewInternalError("Failed to load analysis run")
	}
	if run == nil {
		return nil, utils.NewNotFoundError(fmt.Sprintf("Analysis run %s not found", id))
	}
	return run, nil
}

func countBySeverity(items []models.AnalysisItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Severity]++
	}
	return counts
}
