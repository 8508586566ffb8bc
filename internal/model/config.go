package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete runtime configuration of the evaluator
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Evidence     EvidenceConfig     `yaml:"evidence" mapstructure:"evidence"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Review       ReviewConfig       `yaml:"review" mapstructure:"review"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// LLMConfig holds provider credentials and request settings shared by every model call
type LLMConfig struct {
	ExtractionModel  string        `yaml:"extraction_model" mapstructure:"extraction_model" validate:"required"`
	OpenAIAPIKey     string        `yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	AnthropicAPIKey  string        `yaml:"anthropic_api_key,omitempty" mapstructure:"anthropic_api_key"`
	OpenAIBaseURL    string        `yaml:"openai_base_url,omitempty" mapstructure:"openai_base_url" validate:"omitempty,url"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url,omitempty" mapstructure:"anthropic_base_url" validate:"omitempty,url"`
	OllamaBaseURL    string        `yaml:"ollama_base_url,omitempty" mapstructure:"ollama_base_url" validate:"omitempty,url"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	MaxTokens        int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	HTTPProxy        string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy       string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// VerificationConfig controls which models judge claims and how their votes combine
type VerificationConfig struct {
	Models              []string           `yaml:"models" mapstructure:"models" validate:"required,min=1,dive,required"`
	ConsensusMethod     string             `yaml:"consensus_method" mapstructure:"consensus_method" validate:"oneof=single simple weighted ice"`
	Weights             map[string]float64 `yaml:"weights,omitempty" mapstructure:"weights" validate:"dive,gte=0"`
	ConfidenceThreshold float64            `yaml:"confidence_threshold" mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
	ICEMaxRounds        int                `yaml:"ice_max_rounds" mapstructure:"ice_max_rounds" validate:"gte=1,lte=10"`
	JudgeTimeout        time.Duration      `yaml:"judge_timeout" mapstructure:"judge_timeout" validate:"gte=0"`
	MaxClaims           int                `yaml:"max_claims" mapstructure:"max_claims" validate:"gte=0"`
}

// EvidenceConfig controls evidence gathering
type EvidenceConfig struct {
	EnableWebSearch   bool     `yaml:"enable_web_search" mapstructure:"enable_web_search"`
	EnableFilesystem  bool     `yaml:"enable_filesystem_search" mapstructure:"enable_filesystem_search"`
	MaxEvidenceItems  int      `yaml:"max_evidence_items" mapstructure:"max_evidence_items" validate:"gte=1,lte=50"`
	MaxSearchResults  int      `yaml:"max_search_results" mapstructure:"max_search_results" validate:"gte=1,lte=10"`
	BraveAPIKey       string   `yaml:"brave_api_key,omitempty" mapstructure:"brave_api_key"`
	SearchEndpoint    string   `yaml:"search_endpoint,omitempty" mapstructure:"search_endpoint" validate:"omitempty,url"`
	FetchPages        bool     `yaml:"fetch_pages" mapstructure:"fetch_pages"`
	RespectRobots     bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int      `yaml:"burst" mapstructure:"burst" validate:"gte=1"`
	IncludeGlobs      []string `yaml:"include_globs" mapstructure:"include_globs"`
	ExcludeGlobs      []string `yaml:"exclude_globs" mapstructure:"exclude_globs"`

	// DomainTiers pins hosts to an authority tier (primary, secondary, tertiary)
	DomainTiers map[string]string `yaml:"domain_tiers,omitempty" mapstructure:"domain_tiers" validate:"dive,oneof=primary secondary tertiary"`
}

// CacheConfig selects and tunes the response cache
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend       string        `yaml:"backend" mapstructure:"backend" validate:"oneof=memory disk layered redis"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db" validate:"gte=0"`
}

// ReviewConfig controls the human review step for low-confidence verdicts
type ReviewConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	Threshold float64 `yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=1"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Formats             []string `yaml:"formats" mapstructure:"formats" validate:"dive,oneof=json markdown html"`
	Dir                 string   `yaml:"dir" mapstructure:"dir"`
	IncludeExplanations bool     `yaml:"include_explanations" mapstructure:"include_explanations"`
	IncludeModelVotes   bool     `yaml:"include_model_votes" mapstructure:"include_model_votes"`
	Verbose             bool     `yaml:"verbose" mapstructure:"verbose"`
}

// MetricsConfig controls prometheus export for one-shot CLI runs
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			ExtractionModel: "gpt-4o-mini",
			Timeout:         60 * time.Second,
			MaxTokens:       2000,
		},
		Verification: VerificationConfig{
			Models:              []string{"gpt-4o", "claude-sonnet-4-5"},
			ConsensusMethod:     "weighted",
			ConfidenceThreshold: VerifiedThreshold,
			ICEMaxRounds:        3,
			JudgeTimeout:        90 * time.Second,
		},
		Evidence: EvidenceConfig{
			EnableWebSearch:   true,
			EnableFilesystem:  true,
			MaxEvidenceItems:  5,
			MaxSearchResults:  3,
			FetchPages:        true,
			RespectRobots:     true,
			UserAgent:         "TruthfulnessEvaluator/0.1",
			RequestsPerSecond: 2,
			Burst:             4,
			IncludeGlobs:      []string{"**/*.md", "**/*.txt", "**/*.py", "**/*.go", "**/*.js", "**/*.ts", "**/*.json", "**/*.yaml", "**/*.yml", "**/*.toml"},
			ExcludeGlobs:      []string{"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/__pycache__/**"},
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			Dir:       defaultCacheDir(),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Review: ReviewConfig{
			Enabled:   false,
			Threshold: 0.6,
		},
		Output: OutputConfig{
			Formats:             []string{"json", "markdown"},
			Dir:                 ".",
			IncludeExplanations: true,
			IncludeModelVotes:   true,
		},
	}
}

func defaultCacheDir() string {
	return ".truth-cache"
}

var configValidate = validator.New()

// Validate checks field constraints and returns a readable error listing every violation
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
