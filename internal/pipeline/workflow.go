// Package pipeline wires extraction, evidence gathering, verification and
// grading into one document evaluation, and defines the built-in workflows.
package pipeline

import (
	"errors"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/extract"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/gather"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/report"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

// ReviewSettings controls when verdicts are handed to a human reviewer
type ReviewSettings struct {
	Enabled bool
	// Threshold is the confidence below which a verdict is reviewed
	Threshold float64
}

// WorkflowConfig bundles ready-to-use components with workflow-level settings
type WorkflowConfig struct {
	Name        string
	Description string

	Extractor extract.Extractor
	Gatherers []gather.Gatherer
	Analyzer  gather.Analyzer
	Verifier  verify.Verifier
	Renderers []report.Renderer

	// MaxClaims caps extracted claims; 0 means no limit
	MaxClaims int
	// MaxEvidence caps evidence per claim across all gatherers
	MaxEvidence int
	Review      ReviewSettings
}

func (w WorkflowConfig) validate() error {
	var errs []error
	if w.Extractor == nil {
		errs = append(errs, errors.New("workflow has no extractor"))
	}
	if w.Verifier == nil {
		errs = append(errs, errors.New("workflow has no verifier"))
	}
	if w.MaxClaims < 0 {
		errs = append(errs, errors.New("max claims must not be negative"))
	}
	return errors.Join(errs...)
}
