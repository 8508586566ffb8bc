package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/metrics"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockEvaluator struct {
	EvaluateFunc func(ctx context.Context, doc pipeline.Document) (*model.Report, error)
}

func (m *mockEvaluator) Evaluate(ctx context.Context, doc pipeline.Document) (*model.Report, error) {
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, doc)
	}
	return &model.Report{SourceDocument: doc.Path, OverallGrade: "A", Statistics: model.Statistics{TotalClaims: 1, Supported: 1}}, nil
}

// servingAll maps every built-in preset to eval
func servingAll(eval Evaluator) map[string]Evaluator {
	out := make(map[string]Evaluator)
	for _, p := range pipeline.Presets() {
		out[p.Name] = eval
	}
	return out
}

func newTestServer(t *testing.T, eval Evaluator, m *metrics.Metrics) *gin.Engine {
	t.Helper()
	s, err := NewServer(Config{Evaluators: servingAll(eval), Metrics: m})
	require.NoError(t, err)
	return s.Router()
}

// recordingEvaluator captures the last document it was asked to evaluate
type recordingEvaluator struct {
	doc pipeline.Document
}

func (r *recordingEvaluator) Evaluate(_ context.Context, doc pipeline.Document) (*model.Report, error) {
	r.doc = doc
	return &model.Report{SourceDocument: doc.Path, OverallGrade: "A"}, nil
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, &mockEvaluator{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPresets(t *testing.T) {
	r := newTestServer(t, &mockEvaluator{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var presets []PresetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	require.Len(t, presets, 5)
	assert.Equal(t, "external", presets[0].Name)
}

func TestEvaluate_Success(t *testing.T) {
	var got pipeline.Document
	eval := &mockEvaluator{EvaluateFunc: func(_ context.Context, doc pipeline.Document) (*model.Report, error) {
		got = doc
		return &model.Report{SourceDocument: doc.Path, OverallGrade: "B+"}, nil
	}}
	r := newTestServer(t, eval, nil)

	rec := postJSON(t, r, "/v1/evaluate", EvaluateRequest{Document: "Go was released in 2009.", Path: "notes.md"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "B+", rep.OverallGrade)
	assert.Equal(t, "notes.md", rep.SourceDocument)
	assert.Equal(t, pipeline.Document{Text: "Go was released in 2009.", Path: "notes.md"}, got)
}

func TestEvaluate_DefaultPath(t *testing.T) {
	r := newTestServer(t, &mockEvaluator{}, nil)

	rec := postJSON(t, r, "/v1/evaluate", map[string]string{"document": "text"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source_document":"request"`)
}

func TestEvaluate_ValidationErrors(t *testing.T) {
	r := newTestServer(t, &mockEvaluator{}, nil)

	tests := []struct {
		name string
		body any
	}{
		{"missing document", map[string]string{"path": "a.md"}},
		{"unknown preset", map[string]string{"document": "x", "preset": "paranoid"}},
		{"not json", "just a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, r, "/v1/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestEvaluate_UnservedPreset(t *testing.T) {
	s, err := NewServer(Config{
		Evaluators:    map[string]Evaluator{"quick": &mockEvaluator{}},
		DefaultPreset: "quick",
	})
	require.NoError(t, err)

	rec := postJSON(t, s.Router(), "/v1/evaluate", EvaluateRequest{Document: "x", Preset: "internal"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `preset \"internal\" is not served`)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
	var presets []PresetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	require.Len(t, presets, 1)
	assert.Equal(t, "quick", presets[0].Name)
}

func TestNewServer_Errors(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err, "no evaluators")

	_, err = NewServer(Config{Evaluators: map[string]Evaluator{"quick": &mockEvaluator{}}})
	assert.ErrorContains(t, err, `default preset "external" is not served`)

	_, err = NewServer(Config{
		Evaluators:  servingAll(&mockEvaluator{}),
		AllowedRoot: filepath.Join(t.TempDir(), "missing"),
	})
	assert.Error(t, err, "served root must exist")
}

func TestEvaluate_RootPathConfinement(t *testing.T) {
	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	require.NoError(t, os.Mkdir(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "README.md"), []byte("readme"), 0o644))

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "credentials.yaml"), []byte("database_password: hunter2"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "escape")))

	resolvedBase, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)

	eval := &recordingEvaluator{}
	s, err := NewServer(Config{Evaluators: servingAll(eval), AllowedRoot: base})
	require.NoError(t, err)
	r := s.Router()

	tests := []struct {
		name     string
		rootPath string
		code     int
		want     string
		errMsg   string
	}{
		{name: "served root itself", rootPath: base, code: http.StatusOK, want: resolvedBase},
		{name: "absolute subdirectory", rootPath: docs, code: http.StatusOK, want: filepath.Join(resolvedBase, "docs")},
		{name: "relative subdirectory", rootPath: "docs", code: http.StatusOK, want: filepath.Join(resolvedBase, "docs")},
		{name: "directory outside", rootPath: outside, code: http.StatusBadRequest, errMsg: ErrRootOutside.Error()},
		{name: "parent traversal", rootPath: "docs/../..", code: http.StatusBadRequest, errMsg: ErrRootOutside.Error()},
		{name: "symlink escaping root", rootPath: "escape", code: http.StatusBadRequest, errMsg: ErrRootOutside.Error()},
		{name: "missing directory", rootPath: "nope", code: http.StatusBadRequest, errMsg: ErrRootNotFound.Error()},
		{name: "file not directory", rootPath: "README.md", code: http.StatusBadRequest, errMsg: ErrRootNotDir.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval.doc = pipeline.Document{}
			rec := postJSON(t, r, "/v1/evaluate", EvaluateRequest{Document: "The database_password setting is documented", RootPath: tt.rootPath})
			require.Equal(t, tt.code, rec.Code, rec.Body.String())

			if tt.errMsg != "" {
				assert.Contains(t, rec.Body.String(), tt.errMsg)
				assert.Empty(t, eval.doc.Text, "rejected requests never reach the evaluator")
				return
			}
			assert.Equal(t, tt.want, eval.doc.RootPath)
		})
	}
}

func TestEvaluate_RootPathIgnoredWithoutServedRoot(t *testing.T) {
	eval := &recordingEvaluator{}
	s, err := NewServer(Config{Evaluators: servingAll(eval)})
	require.NoError(t, err)

	rec := postJSON(t, s.Router(), "/v1/evaluate", EvaluateRequest{Document: "x", RootPath: t.TempDir()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, eval.doc.RootPath)
	assert.Equal(t, "x", eval.doc.Text)
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{pipeline.ErrEmptyDocument, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			eval := &mockEvaluator{EvaluateFunc: func(context.Context, pipeline.Document) (*model.Report, error) {
				return nil, tt.err
			}}
			r := newTestServer(t, eval, nil)

			rec := postJSON(t, r, "/v1/evaluate", EvaluateRequest{Document: "x"})
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestEvaluate_Timeout(t *testing.T) {
	eval := &mockEvaluator{EvaluateFunc: func(ctx context.Context, _ pipeline.Document) (*model.Report, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s, err := NewServer(Config{Evaluators: servingAll(eval), Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	rec := postJSON(t, s.Router(), "/v1/evaluate", EvaluateRequest{Document: "x"})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	r := newTestServer(t, &mockEvaluator{}, m)

	rec := postJSON(t, r, "/v1/evaluate", EvaluateRequest{Document: "x"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `truth_api_time_seconds_count{handler="/v1/evaluate",method="POST",status_code="200"} 1`)
}

func TestMetricsEndpoint_DisabledWithoutMetrics(t *testing.T) {
	r := newTestServer(t, &mockEvaluator{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
