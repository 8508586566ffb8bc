package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/extract"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/gather"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/llm"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/metrics"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/report"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/util"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/worker"
)

// quickSearchResults is the search depth of the quick preset
const quickSearchResults = 2

// Deps are the shared resources workflows are built from. Only Config is required.
type Deps struct {
	Config     model.Config
	Cache      cache.Cache
	HTTPClient *http.Client
	// Search overrides the Brave provider built from Config
	Search gather.SearchProvider
	// Providers overrides llm.ProviderForModel
	Providers func(modelName string) (llm.Provider, error)
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Preset is a named workflow recipe
type Preset struct {
	Name        string
	Description string
	build       func(b *builder) (WorkflowConfig, error)
}

// Build assembles the preset's workflow from deps
func (p Preset) Build(deps Deps) (WorkflowConfig, error) {
	w, err := p.build(newBuilder(deps))
	if err != nil {
		return WorkflowConfig{}, fmt.Errorf("build %s workflow: %w", p.Name, err)
	}
	w.Name = p.Name
	w.Description = p.Description
	return w, nil
}

// Presets returns the built-in workflows in display order
func Presets() []Preset {
	return []Preset{
		{
			Name:        "external",
			Description: "Verify claims using web search and multi-model consensus.",
			build: func(b *builder) (WorkflowConfig, error) {
				return b.workflow(b.llmExtractor, []gatherSpec{b.web(0)}, b.llmAnalyzer, b.consensus, "json", "markdown")
			},
		},
		{
			Name:        "full",
			Description: "Comprehensive verification using web and filesystem evidence.",
			build: func(b *builder) (WorkflowConfig, error) {
				return b.workflow(b.llmExtractor, []gatherSpec{b.web(0), b.filesystem}, b.llmAnalyzer, b.consensus, "json", "markdown", "html")
			},
		},
		{
			Name:        "quick",
			Description: "Fast single-model verification with limited web search.",
			build: func(b *builder) (WorkflowConfig, error) {
				return b.workflow(b.heuristicExtractor, []gatherSpec{b.web(quickSearchResults)}, b.noopAnalyzer, b.quickSingle, "json")
			},
		},
		{
			Name:        "internal",
			Description: "Verify documentation claims against the codebase under the root path.",
			build: func(b *builder) (WorkflowConfig, error) {
				return b.workflow(b.llmExtractor, []gatherSpec{b.filesystem}, b.llmAnalyzer, b.consensus, "json", "markdown")
			},
		},
		{
			Name:        "ice",
			Description: "Web evidence with iterative consensus: models critique each other until they agree.",
			build: func(b *builder) (WorkflowConfig, error) {
				return b.workflow(b.llmExtractor, []gatherSpec{b.web(0)}, b.llmAnalyzer, b.ice, "json", "markdown")
			},
		},
	}
}

// Lookup finds a preset by name
func Lookup(presets []Preset, name string) (Preset, error) {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
}

// PresetForMode maps a verification mode (external, internal, both) to a preset name
func PresetForMode(mode string) (string, error) {
	switch strings.ToLower(mode) {
	case "", "external":
		return "external", nil
	case "internal":
		return "internal", nil
	case "both":
		return "full", nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected external, internal or both)", mode)
	}
}

// FromConfig builds a workflow driven entirely by deps.Config: gatherers from the
// evidence switches, verifier from the consensus method, renderers from the output formats.
func FromConfig(deps Deps) (WorkflowConfig, error) {
	b := newBuilder(deps)
	cfg := deps.Config

	var gatherers []gatherSpec
	if cfg.Evidence.EnableWebSearch {
		gatherers = append(gatherers, b.web(0))
	}
	if cfg.Evidence.EnableFilesystem {
		gatherers = append(gatherers, b.filesystem)
	}

	v := b.consensus
	switch cfg.Verification.ConsensusMethod {
	case "single":
		v = b.firstSingle
	case "ice":
		v = b.ice
	}

	w, err := b.workflow(b.llmExtractor, gatherers, b.llmAnalyzer, v, cfg.Output.Formats...)
	if err != nil {
		return WorkflowConfig{}, fmt.Errorf("build workflow: %w", err)
	}
	w.Name = "custom"
	w.Description = "Workflow assembled from configuration."
	return w, nil
}

type (
	extractorSpec func() (extract.Extractor, error)
	gatherSpec    func() (gather.Gatherer, error)
	analyzerSpec  func() (gather.Analyzer, error)
	verifierSpec  func() (verify.Verifier, error)
)

// builder turns configuration into components, sharing one provider per model
type builder struct {
	deps   Deps
	logger *slog.Logger

	mu        sync.Mutex
	providers map[string]llm.Provider
}

func newBuilder(deps Deps) *builder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = util.NewHTTPClient(deps.Config.LLM.HTTPProxy, deps.Config.LLM.HTTPSProxy, "")
	}
	if deps.Providers == nil {
		llmCfg := deps.Config.LLM
		deps.Providers = func(name string) (llm.Provider, error) {
			return llm.ProviderForModel(llmCfg, name)
		}
	}
	return &builder{deps: deps, logger: deps.Logger, providers: make(map[string]llm.Provider)}
}

func (b *builder) workflow(ex extractorSpec, gatherers []gatherSpec, an analyzerSpec, v verifierSpec, formats ...string) (WorkflowConfig, error) {
	cfg := b.deps.Config
	w := WorkflowConfig{
		MaxClaims:   cfg.Verification.MaxClaims,
		MaxEvidence: cfg.Evidence.MaxEvidenceItems,
		Review:      ReviewSettings{Enabled: cfg.Review.Enabled, Threshold: cfg.Review.Threshold},
	}

	var err error
	if w.Extractor, err = ex(); err != nil {
		return WorkflowConfig{}, err
	}
	for _, build := range gatherers {
		g, err := build()
		if err != nil {
			return WorkflowConfig{}, err
		}
		if g != nil {
			w.Gatherers = append(w.Gatherers, g)
		}
	}
	if w.Analyzer, err = an(); err != nil {
		return WorkflowConfig{}, err
	}
	if w.Verifier, err = v(); err != nil {
		return WorkflowConfig{}, err
	}
	if w.Renderers, err = b.renderers(formats); err != nil {
		return WorkflowConfig{}, err
	}
	return w, nil
}

func (b *builder) provider(modelName string) (llm.Provider, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.providers[modelName]; ok {
		return p, nil
	}
	p, err := b.deps.Providers(modelName)
	if err != nil {
		return nil, fmt.Errorf("provider for %s: %w", modelName, err)
	}
	b.providers[modelName] = p
	return p, nil
}

func (b *builder) llmOptions() []llm.Option {
	return []llm.Option{
		llm.WithCache(b.deps.Cache, b.deps.Config.Cache.DiskTTL),
		llm.WithLogger(b.logger),
	}
}

func (b *builder) llmExtractor() (extract.Extractor, error) {
	name := b.deps.Config.LLM.ExtractionModel
	p, err := b.provider(name)
	if err != nil {
		return nil, err
	}
	return llm.NewClaimExtractor(p, name, b.llmOptions()...), nil
}

func (b *builder) heuristicExtractor() (extract.Extractor, error) {
	return extract.NewHeuristicExtractor(), nil
}

func (b *builder) llmAnalyzer() (gather.Analyzer, error) {
	name := b.deps.Config.LLM.ExtractionModel
	p, err := b.provider(name)
	if err != nil {
		return nil, err
	}
	return llm.NewEvidenceAnalyzer(p, name, b.llmOptions()...), nil
}

func (b *builder) noopAnalyzer() (gather.Analyzer, error) {
	return gather.NoopAnalyzer{}, nil
}

// web returns a builder for the web gatherer; maxResults <= 0 uses the configured depth.
// Without a search provider the gatherer is left out with a warning.
func (b *builder) web(maxResults int) gatherSpec {
	return func() (gather.Gatherer, error) {
		ev := b.deps.Config.Evidence
		if maxResults <= 0 {
			maxResults = ev.MaxSearchResults
		}

		search := b.deps.Search
		if search == nil {
			if ev.BraveAPIKey == "" {
				b.logger.Warn("web search disabled: no search API key configured")
				return nil, nil
			}
			search = gather.NewBraveProvider(ev.BraveAPIKey, ev.SearchEndpoint, b.deps.HTTPClient, b.logger)
		}
		search = gather.NewCachedSearch(search, b.deps.Cache, b.deps.Config.Cache.DiskTTL)

		var fetcher *gather.Fetcher
		if ev.FetchPages {
			fc := gather.FetcherConfig{
				Client:    b.deps.HTTPClient,
				Limiter:   worker.NewLimiter(ev.RequestsPerSecond, ev.Burst),
				UserAgent: ev.UserAgent,
				Logger:    b.logger,
			}
			if ev.RespectRobots {
				fc.Robots = util.NewRobotsChecker(ev.UserAgent, b.deps.HTTPClient, b.logger)
			}
			fetcher = gather.NewFetcher(fc)
		}
		web := gather.NewWebGatherer(search, fetcher, maxResults, b.logger)
		return web.WithAuthority(gather.NewAuthorityClassifier(ev.DomainTiers)), nil
	}
}

func (b *builder) filesystem() (gather.Gatherer, error) {
	ev := b.deps.Config.Evidence
	return gather.NewFilesystemGatherer(ev.IncludeGlobs, ev.ExcludeGlobs, 0, b.logger)
}

func (b *builder) verifyOptions() []verify.Option {
	v := b.deps.Config.Verification
	return []verify.Option{
		verify.WithThreshold(v.ConfidenceThreshold),
		verify.WithCallTimeout(v.JudgeTimeout),
		verify.WithLogger(b.logger),
	}
}

func (b *builder) members(models []string) ([]verify.Member, error) {
	if len(models) == 0 {
		return nil, verify.ErrNoMembers
	}
	members := make([]verify.Member, 0, len(models))
	for _, name := range models {
		p, err := b.provider(name)
		if err != nil {
			return nil, err
		}
		judge := b.deps.Metrics.InstrumentJudge(name, llm.NewJudge(p, name, b.llmOptions()...))
		members = append(members, verify.NewSingleVerifier(name, judge, b.verifyOptions()...).Member())
	}
	return members, nil
}

func (b *builder) consensus() (verify.Verifier, error) {
	v := b.deps.Config.Verification
	members, err := b.members(v.Models)
	if err != nil {
		return nil, err
	}
	opts := b.verifyOptions()
	if v.ConsensusMethod == "weighted" {
		opts = append(opts, verify.WithWeights(v.Weights))
	}
	return verify.NewConsensusVerifier(members, opts...)
}

func (b *builder) ice() (verify.Verifier, error) {
	cfg := b.deps.Config
	members, err := b.members(cfg.Verification.Models)
	if err != nil {
		return nil, err
	}

	criticModel := cfg.LLM.ExtractionModel
	p, err := b.provider(criticModel)
	if err != nil {
		return nil, err
	}

	opts := append(b.verifyOptions(),
		verify.WithMaxRounds(cfg.Verification.ICEMaxRounds),
		verify.WithCritic(llm.NewCritic(p, criticModel, b.llmOptions()...)),
		verify.WithRoundObserver(b.deps.Metrics.ObserveICERounds),
	)
	return verify.NewICEVerifier(members, opts...)
}

func (b *builder) single(name string) (verify.Verifier, error) {
	members, err := b.members([]string{name})
	if err != nil {
		return nil, err
	}
	return members[0].Verifier, nil
}

func (b *builder) quickSingle() (verify.Verifier, error) {
	return b.single(b.deps.Config.LLM.ExtractionModel)
}

func (b *builder) firstSingle() (verify.Verifier, error) {
	models := b.deps.Config.Verification.Models
	if len(models) == 0 {
		return nil, verify.ErrNoMembers
	}
	return b.single(models[0])
}

func (b *builder) renderers(formats []string) ([]report.Renderer, error) {
	out := b.deps.Config.Output
	opts := report.Options{IncludeExplanations: out.IncludeExplanations, IncludeModelVotes: out.IncludeModelVotes}

	renderers := make([]report.Renderer, 0, len(formats))
	for _, f := range formats {
		r, err := report.ForFormat(f, opts)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	return renderers, nil
}
