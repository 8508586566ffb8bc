package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

var (
	// numericCue matches years, quantities and version numbers
	numericCue = regexp.MustCompile(`\b\d+(?:[.,]\d+)*\b`)
	// markdownPrefix matches list bullets, headings and quote markers at line start
	markdownPrefix = regexp.MustCompile(`^\s*(?:#{1,6}\s+|[-*+]\s+|\d+[.)]\s+|>\s*)+`)
	// inlineMarkup matches emphasis, code ticks and link targets
	inlineMarkup = regexp.MustCompile("[*_`]+|\\]\\([^)]*\\)|\\[")
)

// HeuristicExtractor finds claim-like sentences by keyword and numeric cues.
// It needs no model and is used by the offline preset and as a fallback.
type HeuristicExtractor struct {
	keywords []string
}

// NewHeuristicExtractor creates a new keyword-driven extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{
		keywords: []string{
			"originated", "origin", "first", "introduced", "invented",
			"according to", "is defined as", "is legally", "under the law",
			"under this act", "shall", "must", "is required", "established",
			"founded", "created", "discovered", "developed",
			"supports", "requires", "released", "is written in", "uses",
			"consists of", "is located", "is the", "was the", "has been",
		},
	}
}

// Extract implements Extractor
func (e *HeuristicExtractor) Extract(_ context.Context, document, sourcePath string, maxClaims int) ([]model.Claim, error) {
	sentences := splitSentences(plainText(document))

	var claims []model.Claim
	seen := make(map[string]bool)
	for _, sentence := range sentences {
		if maxClaims > 0 && len(claims) >= maxClaims {
			break
		}
		if !e.isClaim(sentence) {
			continue
		}

		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true

		span, around := Locate(document, sentence)
		claims = append(claims, model.Claim{
			ID:             model.ClaimID(len(claims)),
			Text:           sentence,
			SourceDocument: sourcePath,
			SourceSpan:     span,
			Context:        around,
			ClaimType:      model.ClaimTypeExplicit,
		})
	}

	return claims, nil
}

func (e *HeuristicExtractor) isClaim(sentence string) bool {
	if strings.HasSuffix(sentence, "?") {
		return false
	}
	lower := strings.ToLower(sentence)
	for _, keyword := range e.keywords {
		if containsWord(lower, keyword) {
			return true
		}
	}
	return numericCue.MatchString(sentence)
}

// containsWord reports whether phrase occurs in s on word boundaries
func containsWord(s, phrase string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], phrase)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(phrase)
		before := start == 0 || !isWordByte(s[start-1])
		after := end == len(s) || !isWordByte(s[end])
		if before && after {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

// plainText strips markdown structure: code fences, tables, list and heading markers
func plainText(document string) string {
	var out []string
	inFence := false
	for _, line := range strings.Split(document, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || strings.HasPrefix(trimmed, "|") {
			continue
		}
		if trimmed == "" {
			// Paragraph break ends any open sentence
			out = append(out, "\n")
			continue
		}
		isHeading := strings.HasPrefix(trimmed, "#")
		trimmed = markdownPrefix.ReplaceAllString(trimmed, "")
		trimmed = inlineMarkup.ReplaceAllString(trimmed, "")
		if isHeading {
			out = append(out, "\n")
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, " ")
}

// splitSentences splits text into sentences (simple heuristic)
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.Join(strings.Fields(current.String()), " ")
		if len(sentence) >= 30 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting inside numbers and abbreviations like "v1.2"
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\t' || text[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()

	return sentences
}
