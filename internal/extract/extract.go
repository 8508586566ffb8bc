// Package extract turns a document into the list of claims to verify.
package extract

import (
	"context"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// ContextWindow is the number of characters kept on each side of a claim as its context
const ContextWindow = 100

// Extractor pulls atomic factual claims out of a document.
// maxClaims <= 0 means no limit.
type Extractor interface {
	Extract(ctx context.Context, document, sourcePath string, maxClaims int) ([]model.Claim, error)
}

// Locate finds text in document and returns its span and the surrounding context.
// Returns nil and "" when text does not occur verbatim.
func Locate(document, text string) (*model.Span, string) {
	start := strings.Index(document, text)
	if start < 0 || text == "" {
		return nil, ""
	}
	end := start + len(text)

	from := start - ContextWindow
	if from < 0 {
		from = 0
	}
	to := end + ContextWindow
	if to > len(document) {
		to = len(document)
	}
	from, to = runeBoundary(document, from, false), runeBoundary(document, to, true)

	return &model.Span{Start: start, End: end}, document[from:to]
}

// runeBoundary moves i onto a UTF-8 rune start, forward or backward
func runeBoundary(s string, i int, forward bool) int {
	for i > 0 && i < len(s) && !isRuneStart(s[i]) {
		if forward {
			i++
		} else {
			i--
		}
	}
	return i
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
