package score

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

func result(id string, verdict model.Verdict, conf float64) model.VerificationResult {
	return model.VerificationResult{ClaimID: id, Verdict: verdict, Confidence: conf, Explanation: "ok"}
}

func claims(n int) []model.Claim {
	out := make([]model.Claim, n)
	for i := range out {
		out[i] = model.Claim{ID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("Claim %d", i), SourceDocument: "test.txt"}
	}
	return out
}

func TestCalculateGrade_Ranges(t *testing.T) {
	tests := []struct {
		supports   int // out of 10 verified
		confidence float64
		want       string
	}{
		{10, 0.95, "A+"},
		{10, 0.90, "A+"},
		{10, 0.88, "A"},
		{10, 0.85, "A"},
		{10, 0.82, "A-"},
		{10, 0.80, "A-"},
		{9, 0.85, "B+"}, // 0.765
		{8, 0.90, "B"},  // 0.72
		{7, 0.90, "C+"}, // 0.63
		{6, 0.95, "C"},  // 0.57
		{5, 1.00, "C-"}, // 0.50
		{5, 0.85, "D"},  // 0.425
		{3, 0.90, "F"},  // 0.27
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%.2f", tt.supports, tt.confidence), func(t *testing.T) {
			var vs []model.VerificationResult
			for i := 0; i < 10; i++ {
				verdict := model.VerdictRefutes
				if i < tt.supports {
					verdict = model.VerdictSupports
				}
				vs = append(vs, result(fmt.Sprintf("c%d", i), verdict, tt.confidence))
			}
			assert.Equal(t, tt.want, CalculateGrade(vs, DefaultConfidenceThreshold))
		})
	}
}

func TestCalculateGrade_Empty(t *testing.T) {
	assert.Equal(t, "F", CalculateGrade(nil, DefaultConfidenceThreshold))
	assert.Equal(t, "F", CalculateGrade([]model.VerificationResult{}, DefaultConfidenceThreshold))
}

func TestCalculateGrade_NothingVerified(t *testing.T) {
	vs := []model.VerificationResult{
		result("c1", model.VerdictSupports, 0.6),
		result("c2", model.VerdictNotEnoughInfo, 0.9),
		result("c3", model.VerdictRefutes, 0.69),
	}
	assert.Equal(t, "F", CalculateGrade(vs, DefaultConfidenceThreshold))
}

func TestCalculateGrade_CustomThreshold(t *testing.T) {
	vs := []model.VerificationResult{result("c1", model.VerdictSupports, 0.65)}
	assert.Equal(t, "F", CalculateGrade(vs, DefaultConfidenceThreshold))
	assert.Equal(t, "B-", CalculateGrade(vs, 0.6))
}

func TestCalculateGrade_BoundaryRounding(t *testing.T) {
	// 7/9 * 0.9 is 0.7 in exact arithmetic; rounding keeps it on the B cutoff
	var vs []model.VerificationResult
	for i := 0; i < 9; i++ {
		verdict := model.VerdictRefutes
		if i < 7 {
			verdict = model.VerdictSupports
		}
		vs = append(vs, result(fmt.Sprintf("c%d", i), verdict, 0.9))
	}
	assert.Equal(t, "B", CalculateGrade(vs, DefaultConfidenceThreshold))

	exact := []model.VerificationResult{result("c1", model.VerdictSupports, 0.7)}
	assert.Equal(t, "B", CalculateGrade(exact, DefaultConfidenceThreshold))
}

func TestGradeForScore_Boundaries(t *testing.T) {
	assert.Equal(t, "B", GradeForScore(0.70))
	assert.Equal(t, "B-", GradeForScore(0.6999999), "just under B is still above the B- bound")
	assert.Equal(t, "B-", GradeForScore(0.65))
	assert.Equal(t, "C+", GradeForScore(0.6499999))
	assert.Equal(t, "A+", GradeForScore(1.0))
	assert.Equal(t, "D", GradeForScore(0.40))
	assert.Equal(t, "F", GradeForScore(0.3999))
	assert.Equal(t, "F", GradeForScore(0))
}

func TestIsVerified(t *testing.T) {
	assert.True(t, IsVerified(result("c", model.VerdictSupports, 0.9), 0.7))
	assert.True(t, IsVerified(result("c", model.VerdictRefutes, 0.85), 0.7))
	assert.True(t, IsVerified(result("c", model.VerdictSupports, 0.7), 0.7))
	assert.False(t, IsVerified(result("c", model.VerdictSupports, 0.6), 0.7))
	assert.False(t, IsVerified(result("c", model.VerdictNotEnoughInfo, 0.95), 0.7))
	assert.False(t, IsVerified(result("c", model.VerdictUnverifiable, 0.95), 0.7))

	low := result("c", model.VerdictSupports, 0.5)
	assert.False(t, IsVerified(low, 0.7))
	assert.True(t, IsVerified(low, 0.5))
}

func TestIsVerified_MatchesModelPredicate(t *testing.T) {
	verdicts := []model.Verdict{model.VerdictSupports, model.VerdictRefutes, model.VerdictNotEnoughInfo, model.VerdictUnverifiable}
	for _, v := range verdicts {
		for _, c := range []float64{0, 0.3, 0.69, 0.7, 0.71, 1} {
			r := result("c", v, c)
			assert.Equal(t, r.IsVerified(), IsVerified(r, DefaultConfidenceThreshold), "%s %.2f", v, c)
		}
	}
}

func TestCalculateStatistics(t *testing.T) {
	vs := []model.VerificationResult{
		result("c0", model.VerdictSupports, 0.9),
		result("c1", model.VerdictSupports, 0.8),
		result("c2", model.VerdictRefutes, 0.85),
		result("c3", model.VerdictNotEnoughInfo, 0.5),
		result("c4", model.VerdictUnverifiable, 0.4),
	}

	stats := CalculateStatistics(claims(5), vs)

	assert.Equal(t, 5, stats.TotalClaims)
	assert.Equal(t, 2, stats.Supported)
	assert.Equal(t, 1, stats.Refuted)
	assert.Equal(t, 1, stats.NotEnoughInfo)
	assert.Equal(t, 1, stats.Unverifiable)
	assert.InDelta(t, 0.6, stats.VerificationRate, 1e-9)
	assert.InDelta(t, 2.0/3.0, stats.AccuracyScore, 1e-9)
	assert.Equal(t, len(vs), stats.Supported+stats.Refuted+stats.NotEnoughInfo+stats.Unverifiable)
}

func TestCalculateStatistics_Empty(t *testing.T) {
	stats := CalculateStatistics(nil, nil)
	assert.Equal(t, model.Statistics{}, stats)
}

func TestCalculateStatistics_TotalIndependentOfVerifications(t *testing.T) {
	vs := []model.VerificationResult{result("c0", model.VerdictSupports, 0.9)}
	stats := CalculateStatistics(claims(4), vs)
	assert.Equal(t, 4, stats.TotalClaims)
	assert.InDelta(t, 0.25, stats.VerificationRate, 1e-9)
	assert.Equal(t, 1.0, stats.AccuracyScore)
}

func TestCalculateStatistics_AllRefuted(t *testing.T) {
	vs := []model.VerificationResult{
		result("c0", model.VerdictRefutes, 0.9),
		result("c1", model.VerdictRefutes, 0.9),
	}
	stats := CalculateStatistics(claims(2), vs)
	assert.Equal(t, 1.0, stats.VerificationRate)
	assert.Equal(t, 0.0, stats.AccuracyScore)
}

func TestGenerateSummary(t *testing.T) {
	t.Run("no claims", func(t *testing.T) {
		assert.Equal(t, "No claims were extracted from the document.", GenerateSummary("F", model.Statistics{}))
	})

	t.Run("structure", func(t *testing.T) {
		stats := model.Statistics{TotalClaims: 1, Supported: 1, VerificationRate: 1, AccuracyScore: 1}
		assert.Equal(t,
			"Document received grade A+. Of 1 claims, 1 were supported, 0 were refuted, and 0 could not be verified. The document appears to be largely accurate.",
			GenerateSummary("A+", stats))
	})

	t.Run("low verification rate wins over accuracy", func(t *testing.T) {
		stats := model.Statistics{TotalClaims: 10, Refuted: 2, NotEnoughInfo: 8, VerificationRate: 0.2, AccuracyScore: 0}
		s := GenerateSummary("F", stats)
		assert.Contains(t, s, "Many claims lacked sufficient evidence for verification.")
		assert.NotContains(t, s, "inaccurate")
		assert.Contains(t, s, "8 could not be verified")
	})

	t.Run("low accuracy", func(t *testing.T) {
		stats := model.Statistics{TotalClaims: 4, Supported: 2, Refuted: 2, VerificationRate: 1, AccuracyScore: 0.5}
		assert.Contains(t, GenerateSummary("D", stats), "Several claims were found to be inaccurate.")
	})

	t.Run("unverifiable counted as unverified", func(t *testing.T) {
		stats := model.Statistics{TotalClaims: 4, Supported: 3, NotEnoughInfo: 0, Unverifiable: 1, VerificationRate: 0.75, AccuracyScore: 1}
		s := GenerateSummary("A", stats)
		assert.Contains(t, s, "1 could not be verified")
		assert.Contains(t, s, "largely accurate")
	})
}

func TestBuildReport(t *testing.T) {
	cs := claims(1)
	vs := []model.VerificationResult{result("c0", model.VerdictSupports, 0.9)}

	report := BuildReport("test.txt", cs, vs)

	assert.Equal(t, "test.txt", report.SourceDocument)
	assert.Equal(t, "A+", report.OverallGrade)
	assert.InDelta(t, 0.9, report.OverallConfidence, 1e-9)
	assert.Contains(t, report.Summary, "grade A+")
	assert.Empty(t, report.UnvalidatedClaims)
	assert.Equal(t, CalculateStatistics(cs, vs), report.Statistics)
}

func TestBuildReport_UnvalidatedClaims(t *testing.T) {
	cs := claims(3)
	vs := []model.VerificationResult{
		result("c0", model.VerdictSupports, 0.9),
		result("c2", model.VerdictRefutes, 0.8),
	}

	report := BuildReport("doc.md", cs, vs)

	require.Len(t, report.UnvalidatedClaims, 1)
	assert.Equal(t, "c1", report.UnvalidatedClaims[0].ID)
}

func TestBuildReport_Overrides(t *testing.T) {
	cs := claims(1)
	vs := []model.VerificationResult{result("c0", model.VerdictRefutes, 0.95)}

	report := BuildReport("doc.md", cs, vs, WithGrade("B+"), WithSummary("Custom summary text"))

	assert.Equal(t, "B+", report.OverallGrade)
	assert.Equal(t, "Custom summary text", report.Summary)
}

func TestBuildReport_OverrideGradeFeedsSummary(t *testing.T) {
	cs := claims(1)
	vs := []model.VerificationResult{result("c0", model.VerdictSupports, 0.9)}

	report := BuildReport("doc.md", cs, vs, WithGrade("Z"))

	assert.Equal(t, "Z", report.OverallGrade)
	assert.Contains(t, report.Summary, "grade Z")
}

func TestBuildReport_NoVerifications(t *testing.T) {
	report := BuildReport("empty.md", nil, nil)

	assert.Equal(t, "F", report.OverallGrade)
	assert.Equal(t, 0.0, report.OverallConfidence)
	assert.Contains(t, report.Summary, "No claims were extracted")
	assert.NotNil(t, report.Claims)
	assert.NotNil(t, report.Verifications)
	assert.NotNil(t, report.UnvalidatedClaims)
}

func TestBuildReport_CustomThreshold(t *testing.T) {
	cs := claims(1)
	vs := []model.VerificationResult{result("c0", model.VerdictSupports, 0.65)}

	assert.Equal(t, "F", BuildReport("d", cs, vs).OverallGrade)
	assert.Equal(t, "B-", BuildReport("d", cs, vs, WithThreshold(0.6)).OverallGrade)
}

func TestBuildReport_StatisticsRoundTrip(t *testing.T) {
	cs := claims(6)
	vs := []model.VerificationResult{
		result("c0", model.VerdictSupports, 0.9),
		result("c1", model.VerdictRefutes, 0.2),
		result("c2", model.VerdictNotEnoughInfo, 0.0),
		result("c3", model.VerdictUnverifiable, 0.5),
	}
	report := BuildReport("d", cs, vs)
	assert.Equal(t, CalculateStatistics(cs, vs), report.Statistics)
	assert.Len(t, report.UnvalidatedClaims, 2)
	assert.InDelta(t, 0.4, report.OverallConfidence, 1e-9)
}
