package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/metrics"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/util"
)

// session holds the resources shared by every command that evaluates documents
type session struct {
	cfg    model.Config
	deps   pipeline.Deps
	logger *slog.Logger
}

func newSession(cfg model.Config, logger *slog.Logger) (*session, error) {
	c, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	return &session{
		cfg: cfg,
		deps: pipeline.Deps{
			Config:     cfg,
			Cache:      c,
			HTTPClient: util.NewHTTPClient(cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, os.Getenv("NO_PROXY")),
			Metrics:    metrics.New(),
			Logger:     logger,
		},
		logger: logger,
	}, nil
}

// workflow builds the named preset, or the configuration-driven workflow when name is empty
func (s *session) workflow(name string) (pipeline.WorkflowConfig, error) {
	if name == "" {
		return pipeline.FromConfig(s.deps)
	}
	preset, err := pipeline.Lookup(pipeline.Presets(), name)
	if err != nil {
		return pipeline.WorkflowConfig{}, err
	}
	return preset.Build(s.deps)
}

// pipeline wires w to the session's fetcher, metrics and logger
func (s *session) pipeline(w pipeline.WorkflowConfig, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	base := []pipeline.Option{
		pipeline.WithFetcher(pipeline.NewFetcher(s.deps.HTTPClient, s.cfg.Evidence.UserAgent, 0)),
		pipeline.WithMetrics(s.deps.Metrics),
		pipeline.WithLogger(s.logger),
		pipeline.WithGradeThreshold(s.cfg.Verification.ConfidenceThreshold),
	}
	return pipeline.New(w, append(base, opts...)...)
}

// flushMetrics writes the metrics textfile when one is configured
func (s *session) flushMetrics() {
	if err := s.deps.Metrics.WriteTextfile(s.cfg.Metrics.TextfilePath); err != nil {
		s.logger.Warn("write metrics textfile failed", "path", s.cfg.Metrics.TextfilePath, "error", err)
	}
}
