package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/extract"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/gather"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/metrics"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/score"
)

// ErrEmptyDocument is returned for documents with no text
var ErrEmptyDocument = errors.New("document is empty")

// Document is one evaluation input
type Document struct {
	Text string
	// Path names the document in the report
	Path string
	// RootPath is the directory searched by filesystem gatherers
	RootPath string
}

// Pipeline orchestrates extraction, evidence gathering, verification, review and grading
type Pipeline struct {
	workflow WorkflowConfig
	gatherer gather.Gatherer
	analyzer gather.Analyzer

	reviewer    Reviewer
	fetcher     *Fetcher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	rootPath    string
	concurrency int
	threshold   float64
	now         func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithReviewer sets the human reviewer used when the workflow enables review
func WithReviewer(r Reviewer) Option {
	return func(p *Pipeline) { p.reviewer = r }
}

// WithFetcher sets the fetcher used for URL documents
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithMetrics records document and claim outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRootPath sets the filesystem evidence root for EvaluateFile
func WithRootPath(root string) Option {
	return func(p *Pipeline) { p.rootPath = root }
}

// WithConcurrency sets how many claims are verified at once
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithGradeThreshold sets the confidence a verdict needs to count towards the grade
func WithGradeThreshold(t float64) Option {
	return func(p *Pipeline) { p.threshold = t }
}

// New creates a pipeline running workflow
func New(workflow WorkflowConfig, opts ...Option) (*Pipeline, error) {
	if err := workflow.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		workflow:    workflow,
		concurrency: 4,
		threshold:   score.DefaultConfidenceThreshold,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.fetcher == nil {
		p.fetcher = NewFetcher(nil, "", 0)
	}

	p.gatherer = gather.NewCompositeGatherer(workflow.Gatherers,
		gather.WithMaxEvidence(workflow.MaxEvidence),
		gather.WithCompositeLogger(p.logger))
	p.analyzer = workflow.Analyzer
	if p.analyzer == nil {
		p.analyzer = gather.NoopAnalyzer{}
	}
	return p, nil
}

// Workflow returns the workflow the pipeline runs
func (p *Pipeline) Workflow() WorkflowConfig {
	return p.workflow
}

// Evaluate runs the full evaluation of one document
func (p *Pipeline) Evaluate(ctx context.Context, doc Document) (*model.Report, error) {
	start := time.Now()
	rep, err := p.evaluate(ctx, doc)

	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.ObserveDocument(status, time.Since(start))
	return rep, err
}

func (p *Pipeline) evaluate(ctx context.Context, doc Document) (*model.Report, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}
	logger := p.logger.With("document", doc.Path, "workflow", p.workflow.Name)

	claims, err := p.workflow.Extractor.Extract(ctx, doc.Text, doc.Path, p.workflow.MaxClaims)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	logger.Info("claims extracted", "count", len(claims))

	gctx := gather.Context{gather.RootPathKey: doc.RootPath}
	verifications := make([]model.VerificationResult, len(claims))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, claim := range claims {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			verifications[i] = p.verifyClaim(ctx, claim, gctx, logger)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.review(ctx, claims, verifications, logger); err != nil {
		return nil, err
	}
	for _, v := range verifications {
		p.metrics.ObserveClaim(v.Verdict)
	}

	rep := score.BuildReport(doc.Path, claims, verifications, score.WithThreshold(p.threshold))
	rep.EvaluationID = uuid.NewString()
	rep.GeneratedAt = p.now().UTC()

	logger.Info("evaluation complete", "grade", rep.OverallGrade, "claims", len(claims))
	return rep, nil
}

func (p *Pipeline) verifyClaim(ctx context.Context, claim model.Claim, gctx gather.Context, logger *slog.Logger) model.VerificationResult {
	evidence, err := p.gatherer.Gather(ctx, claim, gctx)
	if err != nil {
		logger.Warn("evidence gathering failed", "claim_id", claim.ID, "error", err)
		evidence = nil
	}

	if len(evidence) > 0 {
		analyzed, err := p.analyzer.Analyze(ctx, claim, evidence)
		if err != nil {
			logger.Warn("evidence analysis failed", "claim_id", claim.ID, "error", err)
		} else {
			evidence = analyzed
		}
	}

	result := p.workflow.Verifier.Verify(ctx, claim, evidence)
	logger.Debug("claim verified", "claim_id", claim.ID, "verdict", result.Verdict, "confidence", result.Confidence, "evidence", len(evidence))
	return result
}

// review runs sequentially, in claim order, so an interactive reviewer sees one prompt at a time
func (p *Pipeline) review(ctx context.Context, claims []model.Claim, verifications []model.VerificationResult, logger *slog.Logger) error {
	settings := p.workflow.Review
	if !settings.Enabled || p.reviewer == nil {
		return nil
	}

	for i := range verifications {
		v := &verifications[i]
		if v.Confidence >= settings.Threshold {
			continue
		}

		response, err := p.reviewer.Review(ctx, ReviewRequest{Claim: claims[i], Result: *v, EvidenceCount: len(v.Evidence)})
		if err != nil {
			return fmt.Errorf("review %s: %w", claims[i].ID, err)
		}
		if ParseDecision(response).Apply(v) {
			logger.Info("verdict reviewed", "claim_id", claims[i].ID, "verdict", v.Verdict)
		}
	}
	return nil
}

// Load reads a document from a file path or an http(s) URL
func (p *Pipeline) Load(ctx context.Context, location string) (extract.Document, error) {
	if !isURL(location) {
		return extract.LoadDocument(location)
	}

	res, err := p.fetcher.FetchWithRetry(ctx, location)
	if err != nil {
		return extract.Document{}, fmt.Errorf("fetch %s: %w", location, err)
	}
	doc, err := extract.PrepareDocument(res.Body, res.FinalURL)
	if err != nil {
		return extract.Document{}, err
	}
	if doc.Format != extract.FormatHTML || doc.Title == "" {
		doc.Title = res.Subject
	}
	return doc, nil
}

// EvaluateFile loads and evaluates the document at location. It implements worker.Evaluator.
func (p *Pipeline) EvaluateFile(ctx context.Context, location string) (*model.Report, error) {
	doc, err := p.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("document loaded", "document", location, "title", doc.Title, "format", doc.Format)
	return p.Evaluate(ctx, Document{Text: doc.Text, Path: location, RootPath: p.rootPath})
}
