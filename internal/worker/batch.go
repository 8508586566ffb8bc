package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Evaluator evaluates one document file
type Evaluator interface {
	EvaluateFile(ctx context.Context, path string) (*model.Report, error)
}

// DocumentJob evaluates the document at Path
type DocumentJob struct {
	Index     int
	Path      string
	Evaluator Evaluator
}

// Execute runs the evaluation
func (j *DocumentJob) Execute(ctx context.Context) Result {
	start := time.Now()
	report, err := j.Evaluator.EvaluateFile(ctx, j.Path)
	return &DocumentResult{
		Index:    j.Index,
		Path:     j.Path,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// DocumentResult is the outcome of one document evaluation
type DocumentResult struct {
	Index    int
	Path     string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the evaluation error
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates many documents concurrently
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a batch processor running up to concurrency evaluations at once
func NewBatchProcessor(evaluator Evaluator, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessDocuments evaluates every path and returns results in input order.
// Documents not started before ctx is cancelled report ctx.Err().
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, paths []string) []*DocumentResult {
	out := make([]*DocumentResult, len(paths))
	if len(paths) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, path := range paths {
			if !pool.Submit(&DocumentJob{Index: i, Path: path, Evaluator: b.evaluator}) {
				return
			}
		}
	}()

	for result := range pool.Results() {
		r := result.(*DocumentResult)
		out[r.Index] = r
		if r.Error != nil {
			b.logger.Warn("document evaluation failed", "path", r.Path, "error", r.Error)
			continue
		}
		b.logger.Info("document evaluated", "path", r.Path, "grade", r.Report.OverallGrade, "duration", r.Duration)
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &DocumentResult{Index: i, Path: paths[i], Error: err}
		}
	}
	return out
}

// ProcessFile reads a document list and evaluates every entry
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*DocumentResult, error) {
	paths, err := ReadDocumentList(listPath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}

	return b.ProcessDocuments(ctx, paths), nil
}

// ReadDocumentList reads document paths from a file, one per line.
// Blank lines and # comments are skipped, duplicates dropped, and
// relative paths resolved against the list file's directory.
func ReadDocumentList(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		line = filepath.Clean(line)

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
