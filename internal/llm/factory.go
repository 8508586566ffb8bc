package llm

import (
	"fmt"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Provider names
const (
	ProviderOpenAI           = "openai"
	ProviderAnthropic        = "anthropic"
	ProviderOllama           = "ollama"
	ProviderOpenAICompatible = "openai-compatible"
)

const ollamaPrefix = "ollama/"

var (
	anthropicHints = []string{"claude", "anthropic"}
	openAIHints    = []string{"gpt", "o1", "o3", "o4", "openai"}
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case ProviderOpenAI, ProviderOpenAICompatible:
		return NewOpenAIProvider(config)

	case ProviderAnthropic, "claude":
		return NewAnthropicProvider(config)

	case ProviderOllama:
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, openai-compatible)", config.Provider)
	}
}

// DetectProvider routes a model name to a provider.
// Names prefixed with "ollama/" go to Ollama; otherwise hints in the name decide,
// and a configured base URL makes any other name an OpenAI-compatible model.
func DetectProvider(modelName, baseURL string) (string, error) {
	lower := strings.ToLower(modelName)

	if strings.HasPrefix(lower, ollamaPrefix) {
		return ProviderOllama, nil
	}
	for _, hint := range anthropicHints {
		if strings.Contains(lower, hint) {
			return ProviderAnthropic, nil
		}
	}
	for _, hint := range openAIHints {
		if strings.Contains(lower, hint) {
			return ProviderOpenAI, nil
		}
	}
	if baseURL != "" {
		return ProviderOpenAICompatible, nil
	}

	return "", fmt.Errorf("cannot determine provider for model %q: expected a name containing one of %v, an %q prefix, or an OpenAI-compatible base URL",
		modelName, append(append([]string{}, anthropicHints...), openAIHints...), ollamaPrefix)
}

// ProviderForModel builds the provider that serves modelName, with credentials from cfg
func ProviderForModel(cfg model.LLMConfig, modelName string) (Provider, error) {
	name, err := DetectProvider(modelName, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}

	pc := Config{
		Provider:   name,
		Model:      modelName,
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
	}

	switch name {
	case ProviderAnthropic:
		pc.APIKey = cfg.AnthropicAPIKey
		pc.BaseURL = cfg.AnthropicBaseURL
	case ProviderOpenAI, ProviderOpenAICompatible:
		pc.APIKey = cfg.OpenAIAPIKey
		pc.BaseURL = cfg.OpenAIBaseURL
	case ProviderOllama:
		pc.Model = strings.TrimPrefix(modelName, modelName[:len(ollamaPrefix)])
		pc.BaseURL = cfg.OllamaBaseURL
	}

	return NewProvider(pc)
}
