package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// mockEvaluator grades every document "B" unless its path contains "bad"
type mockEvaluator struct {
	calls atomic.Int32
	delay func(path string) time.Duration
}

func (m *mockEvaluator) EvaluateFile(ctx context.Context, path string) (*model.Report, error) {
	m.calls.Add(1)
	if m.delay != nil {
		select {
		case <-time.After(m.delay(path)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if strings.Contains(path, "bad") {
		return nil, errors.New("evaluation error")
	}
	return &model.Report{SourceDocument: path, OverallGrade: "B"}, nil
}

func TestBatchProcessor_ProcessDocuments_InputOrder(t *testing.T) {
	evaluator := &mockEvaluator{delay: func(path string) time.Duration {
		// Earlier documents finish last
		if strings.HasSuffix(path, "a.md") {
			return 40 * time.Millisecond
		}
		return time.Millisecond
	}}
	processor := NewBatchProcessor(evaluator, 3, nil)

	paths := []string{"a.md", "b.md", "c.md", "d.md"}
	results := processor.ProcessDocuments(context.Background(), paths)

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] || r.Index != i {
			t.Errorf("result %d: expected %s, got %s (index %d)", i, paths[i], r.Path, r.Index)
		}
		if r.Error != nil {
			t.Errorf("unexpected error for %s: %v", r.Path, r.Error)
		}
		if r.Report == nil || r.Report.SourceDocument != paths[i] {
			t.Errorf("expected report for %s", paths[i])
		}
	}
}

func TestBatchProcessor_ProcessDocuments_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)

	results := processor.ProcessDocuments(context.Background(), []string{"good.md", "bad.md"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() != nil {
		t.Errorf("expected success for good.md, got %v", results[0].Error)
	}
	if results[1].GetError() == nil {
		t.Error("expected error for bad.md")
	}
	if results[1].Report != nil {
		t.Error("expected no report for failed document")
	}
}

func TestBatchProcessor_ProcessDocuments_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)
	results := processor.ProcessDocuments(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessDocuments_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&mockEvaluator{}, 1, nil)
	results := processor.ProcessDocuments(ctx, []string{"a.md", "b.md", "c.md"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r == nil {
			t.Fatal("expected a result for every document")
		}
		if r.Error == nil && r.Report == nil {
			t.Errorf("result for %s has neither report nor error", r.Path)
		}
	}
}

func TestReadDocumentList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "docs.txt")
	content := `# documents to evaluate
README.md

docs/guide.md
/abs/path/notes.md
./README.md
`
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadDocumentList(listPath)
	if err != nil {
		t.Fatalf("ReadDocumentList failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "README.md"),
		filepath.Join(dir, "docs", "guide.md"),
		"/abs/path/notes.md",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestReadDocumentList_NonExistent(t *testing.T) {
	if _, err := ReadDocumentList("/nonexistent/list.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "docs.txt")
	if err := os.WriteFile(listPath, []byte("one.md\ntwo.md\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	evaluator := &mockEvaluator{}
	processor := NewBatchProcessor(evaluator, 2, nil)

	results, err := processor.ProcessFile(context.Background(), listPath)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if evaluator.calls.Load() != 2 {
		t.Errorf("expected 2 evaluations, got %d", evaluator.calls.Load())
	}
	if results[1].Path != filepath.Join(dir, "two.md") {
		t.Errorf("unexpected path %s", results[1].Path)
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)
	if _, err := processor.ProcessFile(context.Background(), "/nonexistent/list.txt"); err == nil {
		t.Error("expected error for missing list file")
	}
}
