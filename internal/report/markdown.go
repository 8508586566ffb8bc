package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const (
	markdownEvidence    = 3
	markdownExplanation = 500
)

// MarkdownRenderer writes a human-readable report
type MarkdownRenderer struct {
	Options Options
}

// Render implements Renderer
func (m MarkdownRenderer) Render(r *model.Report) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString("# Truthfulness Evaluation Report\n\n")
	fmt.Fprintf(&b, "**Document:** %s\n", r.SourceDocument)
	fmt.Fprintf(&b, "**Date:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	grade := displayGrade(r.OverallGrade)
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| **Grade** | %s |\n", grade)
	fmt.Fprintf(&b, "| **Confidence** | %s |\n", percent1(r.OverallConfidence))
	fmt.Fprintf(&b, "| **Total Claims** | %d |\n", r.Statistics.TotalClaims)
	fmt.Fprintf(&b, "| **Supported** | %d |\n", r.Statistics.Supported)
	fmt.Fprintf(&b, "| **Refuted** | %d |\n", r.Statistics.Refuted)
	fmt.Fprintf(&b, "| **Not Enough Info** | %d |\n\n", r.Statistics.NotEnoughInfo)

	if r.Summary != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n\n", r.Summary)
	}

	b.WriteString("## Detailed Results\n\n")
	for _, v := range r.Verifications {
		claim, ok := r.ClaimByID(v.ClaimID)
		if !ok {
			continue
		}
		m.writeVerification(&b, claim, v)
	}

	if len(r.UnvalidatedClaims) > 0 {
		b.WriteString("## Unvalidated Claims\n\n")
		for _, c := range r.UnvalidatedClaims {
			fmt.Fprintf(&b, "- %s\n", c.Text)
		}
		b.WriteString("\n")
	}

	return b.Bytes(), nil
}

func (m MarkdownRenderer) writeVerification(b *bytes.Buffer, claim model.Claim, v model.VerificationResult) {
	fmt.Fprintf(b, "### %s %s\n\n", verdictIcon(v.Verdict), claim.Text)
	fmt.Fprintf(b, "**Verdict:** %s\n", v.Verdict)
	fmt.Fprintf(b, "**Confidence:** %s\n\n", percent1(v.Confidence))

	if m.Options.IncludeModelVotes && len(v.ModelVotes) > 0 {
		b.WriteString("**Model Votes:**\n")
		for _, id := range sortedVotes(v.ModelVotes) {
			fmt.Fprintf(b, "- %s: %s\n", id, v.ModelVotes[id])
		}
		b.WriteString("\n")
	}

	if len(v.Evidence) > 0 {
		b.WriteString("**Evidence:**\n")
		for _, e := range v.Evidence[:min(len(v.Evidence), markdownEvidence)] {
			fmt.Fprintf(b, "- %s (relevance: %s)\n", displaySource(e), percent(e.RelevanceScore))
		}
		b.WriteString("\n")
	}

	if m.Options.IncludeExplanations && v.Explanation != "" {
		b.WriteString("**Explanation:**\n")
		text := []rune(v.Explanation)
		truncated := len(text) > markdownExplanation
		if truncated {
			text = text[:markdownExplanation]
		}
		for _, line := range strings.Split(string(text), "\n") {
			b.WriteString(strings.TrimRight("> "+line, " ") + "\n")
		}
		if truncated {
			b.WriteString("> ...\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
}

// FileExtension implements Renderer
func (MarkdownRenderer) FileExtension() string {
	return ".md"
}
