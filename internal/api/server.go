// Package api serves evaluations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/metrics"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
)

// Evaluator runs one evaluation. *pipeline.Pipeline implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, doc pipeline.Document) (*model.Report, error)
}

var (
	// ErrRootNotFound is returned when a requested root_path does not exist
	ErrRootNotFound = errors.New("root_path does not exist")
	// ErrRootOutside is returned when a requested root_path resolves outside the served root
	ErrRootOutside = errors.New("root_path is outside the served root")
	// ErrRootNotDir is returned when a requested root_path is not a directory
	ErrRootNotDir = errors.New("root_path is not a directory")
)

// EvaluateRequest is the body of POST /v1/evaluate
type EvaluateRequest struct {
	Document string `json:"document" binding:"required,max=1048576"`
	Path     string `json:"path" binding:"omitempty,max=1024"`
	RootPath string `json:"root_path" binding:"omitempty,max=4096"`
	Preset   string `json:"preset" binding:"omitempty,oneof=external full quick internal ice"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// PresetInfo describes one served workflow in GET /v1/presets
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Server holds the HTTP handlers
type Server struct {
	evaluators    map[string]Evaluator
	defaultPreset string
	allowedRoot   string
	timeout       time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// Config configures a Server
type Config struct {
	// Evaluators maps preset names to ready evaluators; requests may only name these
	Evaluators    map[string]Evaluator
	DefaultPreset string
	// AllowedRoot is the directory request root_path values must resolve under.
	// When empty, root_path is ignored and no filesystem evidence is served.
	AllowedRoot string
	// Timeout bounds one evaluation; 0 means no limit beyond the client's
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewServer creates a server over already-built evaluators
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultPreset == "" {
		cfg.DefaultPreset = "external"
	}
	if len(cfg.Evaluators) == 0 {
		return nil, errors.New("no evaluators configured")
	}
	if _, ok := cfg.Evaluators[cfg.DefaultPreset]; !ok {
		return nil, fmt.Errorf("default preset %q is not served (available: %s)", cfg.DefaultPreset, strings.Join(names(cfg.Evaluators), ", "))
	}

	root := cfg.AllowedRoot
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		if root, err = filepath.EvalSymlinks(abs); err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", abs, err)
		}
	}

	return &Server{
		evaluators:    cfg.Evaluators,
		defaultPreset: cfg.DefaultPreset,
		allowedRoot:   root,
		timeout:       cfg.Timeout,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}, nil
}

// Router constructs the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.GET("/presets", s.handlePresets)
	v1.POST("/evaluate", s.handleEvaluate)
	return r
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.ObserveAPIEndpointDuration(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), elapsed.Seconds())
		s.logger.Debug("api request", "route", route, "method", c.Request.Method, "status", c.Writer.Status(), "duration", elapsed)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePresets(c *gin.Context) {
	presets := pipeline.Presets()
	out := make([]PresetInfo, 0, len(s.evaluators))
	for _, p := range presets {
		if _, ok := s.evaluators[p.Name]; ok {
			out = append(out, PresetInfo{Name: p.Name, Description: p.Description})
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	preset := req.Preset
	if preset == "" {
		preset = s.defaultPreset
	}
	evaluator, ok := s.evaluators[preset]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("preset %q is not served (available: %s)", preset, strings.Join(names(s.evaluators), ", ")),
		})
		return
	}

	root, err := s.resolveRoot(req.RootPath)
	if err != nil {
		s.logger.Warn("rejected root_path", "root_path", req.RootPath, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	path := req.Path
	if path == "" {
		path = "request"
	}
	rep, err := evaluator.Evaluate(ctx, pipeline.Document{Text: req.Document, Path: path, RootPath: root})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rep)
	case errors.Is(err, pipeline.ErrEmptyDocument):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "evaluation timed out"})
	default:
		s.logger.Error("evaluation failed", "preset", preset, "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// resolveRoot confines a requested root_path to the served root after resolving symlinks.
// Relative paths are taken relative to the served root.
func (s *Server) resolveRoot(requested string) (string, error) {
	if requested == "" {
		return "", nil
	}
	if s.allowedRoot == "" {
		s.logger.Debug("ignoring root_path: no served root", "root_path", requested)
		return "", nil
	}

	p := requested
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.allowedRoot, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", ErrRootNotFound
	}
	rel, err := filepath.Rel(s.allowedRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrRootOutside
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", ErrRootNotDir
	}
	return resolved, nil
}

func names(evaluators map[string]Evaluator) []string {
	out := make([]string, 0, len(evaluators))
	for name := range evaluators {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
