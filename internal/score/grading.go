package score

import (
	"fmt"
	"math"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// DefaultConfidenceThreshold is the minimum confidence for a verdict to count towards the grade
const DefaultConfidenceThreshold = model.VerifiedThreshold

// gradeCutoffs are inclusive lower bounds, highest first
var gradeCutoffs = []struct {
	min   float64
	grade string
}{
	{0.90, "A+"},
	{0.85, "A"},
	{0.80, "A-"},
	{0.75, "B+"},
	{0.70, "B"},
	{0.65, "B-"},
	{0.60, "C+"},
	{0.55, "C"},
	{0.50, "C-"},
	{0.40, "D"},
}

// IsVerified reports whether r is decisive (SUPPORTS or REFUTES) with confidence >= threshold
func IsVerified(r model.VerificationResult, threshold float64) bool {
	return r.Verdict.IsDecisive() && r.Confidence >= threshold
}

// CalculateGrade converts verification results into a letter grade.
//
// Only verified results count. The score is the share of verified results that
// SUPPORT the claim multiplied by their mean confidence, rounded to 10 decimal
// places so values landing on a cutoff are not pushed below it by float error.
func CalculateGrade(verifications []model.VerificationResult, threshold float64) string {
	if len(verifications) == 0 {
		return "F"
	}

	var verified, supports int
	var confSum float64
	for _, v := range verifications {
		if !IsVerified(v, threshold) {
			continue
		}
		verified++
		confSum += v.Confidence
		if v.Verdict == model.VerdictSupports {
			supports++
		}
	}
	if verified == 0 {
		return "F"
	}

	supportRatio := float64(supports) / float64(verified)
	meanConf := confSum / float64(verified)

	return GradeForScore(roundTo(supportRatio*meanConf, 10))
}

// GradeForScore maps a score in [0, 1] onto the letter scale
func GradeForScore(score float64) string {
	for _, c := range gradeCutoffs {
		if score >= c.min {
			return c.grade
		}
	}
	return "F"
}

// CalculateStatistics counts verdicts across verifications.
// The claims list only contributes TotalClaims.
func CalculateStatistics(claims []model.Claim, verifications []model.VerificationResult) model.Statistics {
	stats := model.Statistics{TotalClaims: len(claims)}

	for _, v := range verifications {
		switch v.Verdict {
		case model.VerdictSupports:
			stats.Supported++
		case model.VerdictRefutes:
			stats.Refuted++
		case model.VerdictNotEnoughInfo:
			stats.NotEnoughInfo++
		case model.VerdictUnverifiable:
			stats.Unverifiable++
		}
	}

	decided := stats.Supported + stats.Refuted
	if stats.TotalClaims > 0 {
		stats.VerificationRate = float64(decided) / float64(stats.TotalClaims)
	}
	if decided > 0 {
		stats.AccuracyScore = float64(stats.Supported) / float64(decided)
	}

	return stats
}

// GenerateSummary renders a one-paragraph synopsis of the evaluation.
// Low verification rate takes precedence over low accuracy.
func GenerateSummary(grade string, stats model.Statistics) string {
	if stats.TotalClaims == 0 {
		return "No claims were extracted from the document."
	}

	summary := fmt.Sprintf(
		"Document received grade %s. Of %d claims, %d were supported, %d were refuted, and %d could not be verified.",
		grade, stats.TotalClaims, stats.Supported, stats.Refuted, stats.NotEnoughInfo+stats.Unverifiable,
	)

	switch {
	case stats.VerificationRate < 0.5:
		summary += " Many claims lacked sufficient evidence for verification."
	case stats.AccuracyScore < 0.7:
		summary += " Several claims were found to be inaccurate."
	default:
		summary += " The document appears to be largely accurate."
	}

	return summary
}

// ReportOption customizes BuildReport
type ReportOption func(*reportOptions)

type reportOptions struct {
	threshold float64
	grade     string
	summary   string
}

// WithThreshold sets the confidence threshold used for grading
func WithThreshold(threshold float64) ReportOption {
	return func(o *reportOptions) { o.threshold = threshold }
}

// WithGrade overrides the computed grade. The value is taken as-is.
func WithGrade(grade string) ReportOption {
	return func(o *reportOptions) { o.grade = grade }
}

// WithSummary overrides the generated summary
func WithSummary(summary string) ReportOption {
	return func(o *reportOptions) { o.summary = summary }
}

// BuildReport derives every report field from finished claims and verifications in one pass
func BuildReport(document string, claims []model.Claim, verifications []model.VerificationResult, opts ...ReportOption) *model.Report {
	o := reportOptions{threshold: DefaultConfidenceThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	verifiedIDs := make(map[string]struct{}, len(verifications))
	for _, v := range verifications {
		verifiedIDs[v.ClaimID] = struct{}{}
	}
	unvalidated := make([]model.Claim, 0)
	for _, c := range claims {
		if _, ok := verifiedIDs[c.ID]; !ok {
			unvalidated = append(unvalidated, c)
		}
	}

	stats := CalculateStatistics(claims, verifications)

	grade := o.grade
	if grade == "" {
		grade = CalculateGrade(verifications, o.threshold)
	}

	var overall float64
	if len(verifications) > 0 {
		var sum float64
		for _, v := range verifications {
			sum += v.Confidence
		}
		overall = sum / float64(len(verifications))
	}

	summary := o.summary
	if summary == "" {
		summary = GenerateSummary(grade, stats)
	}

	if claims == nil {
		claims = []model.Claim{}
	}
	if verifications == nil {
		verifications = []model.VerificationResult{}
	}

	return &model.Report{
		SourceDocument:    document,
		OverallGrade:      grade,
		OverallConfidence: overall,
		Summary:           summary,
		Claims:            claims,
		Verifications:     verifications,
		UnvalidatedClaims: unvalidated,
		Statistics:        stats,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
