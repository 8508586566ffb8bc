package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/report"
)

// evaluateOptions are the evaluation flags shared by evaluate and batch
type evaluateOptions struct {
	rootPath    string
	output      string
	formats     []string
	webSearch   bool
	models      []string
	confidence  float64
	humanReview bool
	mode        string
	preset      string
	consensus   string
	maxClaims   int
	timeout     time.Duration
}

var evalOpts evaluateOptions

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <document>",
	Short: "Evaluate the truthfulness of claims in a document",
	Long: `Evaluate extracts factual claims from a document and verifies each one:
- Claims are extracted by a model (or keyword heuristics in the quick preset)
- Evidence is gathered from web search and, with --root-path, from local files
- A panel of models judges every claim and their votes are combined
- Low-confidence verdicts can be reviewed interactively with --human-review
- The document is graded and reports are written next to it (or to --output)

The document may be a local file (text, markdown, HTML) or an http(s) URL.

Example:
  truth evaluate README.md
  truth evaluate README.md --root-path . --mode both
  truth evaluate docs/api.md -m gpt-4o -m claude-sonnet-4-5 --consensus ice
  truth evaluate https://example.com/post --preset quick -o report.html`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	addEvaluateFlags(evaluateCmd, &evalOpts)
	evaluateCmd.Flags().StringVarP(&evalOpts.output, "output", "o", "", "write a single report to this path (format from extension)")
}

func addEvaluateFlags(cmd *cobra.Command, o *evaluateOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.rootPath, "root-path", "r", "", "root directory for filesystem evidence search")
	f.StringSliceVar(&o.formats, "format", nil, "report formats: json, markdown, html (repeatable)")
	f.BoolVar(&o.webSearch, "web-search", true, "enable web search evidence")
	f.StringSliceVarP(&o.models, "model", "m", nil, "verification model (repeatable)")
	f.Float64VarP(&o.confidence, "confidence", "c", model.VerifiedThreshold, "confidence threshold for a verified claim")
	f.BoolVar(&o.humanReview, "human-review", false, "review low-confidence verdicts interactively")
	f.StringVar(&o.mode, "mode", "", "verification mode: external, internal or both")
	f.StringVar(&o.preset, "preset", "", "named workflow: external, full, quick, internal, ice")
	f.StringVar(&o.consensus, "consensus", "", "consensus method: single, simple, weighted, ice")
	f.IntVar(&o.maxClaims, "max-claims", 0, "maximum claims to verify (0 = all)")
	f.DurationVar(&o.timeout, "timeout", 30*time.Minute, "overall evaluation timeout")
}

// apply copies the flags the user set onto cfg
func (o evaluateOptions) apply(cfg *model.Config, changed func(name string) bool) {
	if changed("model") && len(o.models) > 0 {
		cfg.Verification.Models = o.models
	}
	if changed("confidence") {
		cfg.Verification.ConfidenceThreshold = o.confidence
	}
	if changed("consensus") {
		cfg.Verification.ConsensusMethod = o.consensus
	}
	if changed("max-claims") {
		cfg.Verification.MaxClaims = o.maxClaims
	}
	if changed("human-review") {
		cfg.Review.Enabled = o.humanReview
	}
	if changed("format") && len(o.formats) > 0 {
		cfg.Output.Formats = o.formats
	}
	if changed("web-search") {
		cfg.Evidence.EnableWebSearch = o.webSearch
	}
	// Local files are searched only when there is a root to search
	cfg.Evidence.EnableFilesystem = cfg.Evidence.EnableFilesystem && o.rootPath != ""
}

// workflowName picks the workflow: an explicit preset, then the mode.
// Empty means the configuration-driven workflow.
func (o evaluateOptions) workflowName() (string, error) {
	switch {
	case o.preset != "":
		return o.preset, nil
	case o.mode != "":
		return pipeline.PresetForMode(o.mode)
	default:
		return "", nil
	}
}

// prepare loads the configuration with o applied and builds a pipeline.
// Human review needs an interactive terminal; without one it is skipped.
func (o evaluateOptions) prepare(cmd *cobra.Command, interactive bool) (*session, *pipeline.Pipeline, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	o.apply(&cfg, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	s, err := newSession(cfg, newLogger())
	if err != nil {
		return nil, nil, err
	}

	name, err := o.workflowName()
	if err != nil {
		return nil, nil, err
	}
	w, err := s.workflow(name)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("format") {
		if w.Renderers, err = renderersFor(cfg); err != nil {
			return nil, nil, err
		}
	}

	var opts []pipeline.Option
	if o.rootPath != "" {
		root, err := filepath.Abs(o.rootPath)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve root path: %w", err)
		}
		opts = append(opts, pipeline.WithRootPath(root))
	}
	switch {
	case cfg.Review.Enabled && interactive:
		opts = append(opts, pipeline.WithReviewer(huhReviewer{}))
	case cfg.Review.Enabled:
		s.logger.Warn("human review is only available for single documents, skipping")
	}

	p, err := s.pipeline(w, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

func renderersFor(cfg model.Config) ([]report.Renderer, error) {
	opts := report.Options{
		IncludeExplanations: cfg.Output.IncludeExplanations,
		IncludeModelVotes:   cfg.Output.IncludeModelVotes,
	}
	out := make([]report.Renderer, 0, len(cfg.Output.Formats))
	for _, f := range cfg.Output.Formats {
		r, err := report.ForFormat(f, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	document := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, evalOpts.timeout)
	defer cancel()

	s, p, err := evalOpts.prepare(cmd, true)
	if err != nil {
		return err
	}
	defer s.flushMetrics()

	w := p.Workflow()
	if verbose {
		fmt.Fprintf(os.Stderr, "Evaluating: %s\n", document)
		fmt.Fprintf(os.Stderr, "Workflow: %s\n", w.Name)
		fmt.Fprintf(os.Stderr, "Models: %v\n", s.cfg.Verification.Models)
		fmt.Fprintln(os.Stderr)
	}

	rep, err := p.EvaluateFile(ctx, document)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", document, err)
	}

	paths, err := writeReports(rep, document, evalOpts.output, s.cfg, w.Renderers)
	if err != nil {
		return err
	}

	report.PrintSummary(cmd.OutOrStdout(), rep)
	report.PrintPaths(os.Stderr, paths)
	return nil
}

// writeReports writes rep to output when set, otherwise once per renderer into the output directory
func writeReports(rep *model.Report, document, output string, cfg model.Config, renderers []report.Renderer) ([]string, error) {
	if output == "" {
		return report.WriteAll(rep, cfg.Output.Dir, report.BaseName(document), renderers)
	}

	r, err := report.ForPath(output, report.Options{
		IncludeExplanations: cfg.Output.IncludeExplanations,
		IncludeModelVotes:   cfg.Output.IncludeModelVotes,
	})
	if err != nil {
		return nil, err
	}
	data, err := r.Render(rep)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", output, err)
	}
	return []string{output}, nil
}
