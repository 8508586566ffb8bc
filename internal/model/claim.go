package model

import (
	"fmt"
	"strings"
)

// Claim is an atomic factual assertion extracted from a document.
// Claims are created once by an extractor and never mutated afterwards.
type Claim struct {
	ID             string    `json:"id" validate:"required"`
	Text           string    `json:"text" validate:"required"`
	SourceDocument string    `json:"source_document"`
	SourceSpan     *Span     `json:"source_span,omitempty"`
	Context        string    `json:"context,omitempty"`
	ClaimType      ClaimType `json:"claim_type"`
}

// Span holds the [Start, End) byte offsets of a claim in its source document
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ClaimType categorizes how directly a claim is stated
type ClaimType string

const (
	ClaimTypeExplicit ClaimType = "explicit" // Directly stated
	ClaimTypeImplicit ClaimType = "implicit" // Implied by the text
	ClaimTypeInferred ClaimType = "inferred" // Requires reasoning over the text
)

// ParseClaimType maps free-form input onto a ClaimType.
// Unknown values fall back to explicit.
func ParseClaimType(s string) ClaimType {
	switch ClaimType(strings.ToLower(strings.TrimSpace(s))) {
	case ClaimTypeImplicit:
		return ClaimTypeImplicit
	case ClaimTypeInferred:
		return ClaimTypeInferred
	default:
		return ClaimTypeExplicit
	}
}

// ClaimID formats the sequential claim identifier used by extractors (claim_000, claim_001, ...)
func ClaimID(n int) string {
	return fmt.Sprintf("claim_%03d", n)
}
