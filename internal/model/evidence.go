package model

// Evidence is a sourced snippet bearing on a claim's truth
type Evidence struct {
	Source           string     `json:"source"`                   // URL or file path
	SourceType       SourceType `json:"source_type"`              // web, filesystem, knowledge_base
	Content          string     `json:"content"`                  // Snippet text
	RelevanceScore   float64    `json:"relevance_score"`          // 0..1
	SupportsClaim    *bool      `json:"supports_claim,omitempty"` // nil = neutral/unknown
	CredibilityScore float64    `json:"credibility_score"`        // 0..1
}

// SourceType classifies where a piece of evidence came from
type SourceType string

const (
	SourceWeb           SourceType = "web"
	SourceFilesystem    SourceType = "filesystem"
	SourceKnowledgeBase SourceType = "knowledge_base"
)

// DefaultCredibility is assigned to evidence whose source has not been assessed
const DefaultCredibility = 0.5

// NewEvidence creates neutral evidence with the default credibility
func NewEvidence(source string, sourceType SourceType, content string, relevance float64) Evidence {
	return Evidence{
		Source:           source,
		SourceType:       sourceType,
		Content:          content,
		RelevanceScore:   Clamp01(relevance),
		CredibilityScore: DefaultCredibility,
	}
}

// SupportIndicator renders the tri-state support flag as a fixed marker
func (e Evidence) SupportIndicator() string {
	switch {
	case e.SupportsClaim == nil:
		return "[NEUTRAL]"
	case *e.SupportsClaim:
		return "[SUPPORTS]"
	default:
		return "[REFUTES]"
	}
}

// Bool returns a pointer to b, for populating SupportsClaim
func Bool(b bool) *bool {
	return &b
}

// Clamp01 clamps v into [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
