package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/alphasentinel/internal/document"
	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/score"
)

// Stage is a state of the run state machine
type Stage string

const (
	StageExtractingClaims Stage = "extracting_claims"
	StageVerifyingClaims  Stage = "verifying_claims"
	StageDone             Stage = "done"
)

// ErrMissingTranscript is returned by RunFile before any stage starts
var ErrMissingTranscript = errors.New("transcript not available")

// RunError reports the stage a run failed in
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Observer receives each stage transition. claims is the number of claims known so far.
type Observer func(stage Stage, claims int)

// ClaimExtractor turns a transcript into claims; *extract.ClaimExtractor implements it
type ClaimExtractor interface {
	Extract(ctx context.Context, transcript string) ([]model.Claim, error)
}

// ClaimAdjudicator scores claims in order; *adjudicate.Adjudicator implements it
type ClaimAdjudicator interface {
	AdjudicateAll(ctx context.Context, claims []model.Claim) ([]model.Verdict, error)
}

// Pipeline orchestrates one verification run: extraction, then adjudication
type Pipeline struct {
	extractor   ClaimExtractor
	adjudicator ClaimAdjudicator
	scorer      *score.Scorer
	renderer    *Renderer
	observer    Observer
	config      *model.Config
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a pipeline over an extractor and an adjudicator
func New(cfg *model.Config, extractor ClaimExtractor, adjudicator ClaimAdjudicator) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Pipeline{
		extractor:   extractor,
		adjudicator: adjudicator,
		scorer:      score.NewScorer(cfg.Adjudication.HighRiskThreshold),
		renderer:    NewRenderer(cfg.Output.IncludeFooter, cfg.Output.IncludeRawText),
		config:      cfg,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetObserver registers the transition callback
func (p *Pipeline) SetObserver(observer Observer) {
	p.observer = observer
}

// SetLogger replaces the default logger
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Renderer returns the report renderer configured for this pipeline
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Run verifies the claims of one transcript. On failure no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, transcript string) (*model.RunResult, error) {
	run := &model.RunResult{
		ID:        uuid.NewString(),
		StartedAt: p.now(),
	}

	p.transition(StageExtractingClaims, 0)
	claims, err := p.extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, &RunError{Stage: StageExtractingClaims, Err: err}
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	p.logger.Debug("claims extracted", "run", run.ID, "count", len(claims))

	p.transition(StageVerifyingClaims, len(claims))
	verdicts, err := p.adjudicator.AdjudicateAll(ctx, claims)
	if err != nil {
		return nil, &RunError{Stage: StageVerifyingClaims, Err: err}
	}
	if len(verdicts) != len(claims) {
		return nil, &RunError{
			Stage: StageVerifyingClaims,
			Err:   fmt.Errorf("got %d verdicts for %d claims", len(verdicts), len(claims)),
		}
	}
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}

	run.Claims = claims
	run.Verdicts = verdicts
	run.CompletedAt = p.now()

	p.transition(StageDone, len(claims))
	p.logger.Debug("run complete", "run", run.ID, "duration", run.CompletedAt.Sub(run.StartedAt))

	return run, nil
}

// RunFile loads a transcript from disk and runs it
func (p *Pipeline) RunFile(ctx context.Context, transcriptPath string) (*model.RunResult, error) {
	transcript, err := document.LoadTranscript(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingTranscript, err)
	}
	return p.Run(ctx, transcript)
}

// ReportSources describes where a run's inputs came from
type ReportSources struct {
	Transcript string
	Filing     string
	Index      model.IndexInfo
	LLM        model.LLMInfo
}

// BuildReport aggregates a run into a report
func (p *Pipeline) BuildReport(run *model.RunResult, src ReportSources) *model.Report {
	var verdicts []model.Verdict
	if run != nil {
		verdicts = run.Verdicts
	}

	subject := "transcript"
	if src.Transcript != "" {
		subject = document.SubjectFromSource(src.Transcript)
	}

	return &model.Report{
		Subject:     subject,
		Transcript:  src.Transcript,
		Filing:      src.Filing,
		GeneratedAt: p.now(),
		Run:         run,
		Summary:     p.scorer.Calculate(verdicts),
		Index:       src.Index,
		LLM:         src.LLM,
		Principles:  model.DefaultPrinciples(),
	}
}

func (p *Pipeline) transition(stage Stage, claims int) {
	p.logger.Debug("stage", "stage", stage, "claims", claims)
	if p.observer != nil {
		p.observer(stage, claims)
	}
}
