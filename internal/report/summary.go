package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

var (
	colorGood    = lipgloss.Color("#2F9E44")
	colorFair    = lipgloss.Color("#F59F00")
	colorBad     = lipgloss.Color("#E03131")
	colorMuted   = lipgloss.Color("#616E7C")
	colorAccent  = lipgloss.Color("#3B5BDB")
	summaryWidth = 72
)

// PrintSummary writes a styled overview of r to w. Colors are dropped when w is not a terminal.
func PrintSummary(w io.Writer, r *model.Report) {
	re := lipgloss.NewRenderer(w)

	title := re.NewStyle().Bold(true).Foreground(colorAccent)
	muted := re.NewStyle().Foreground(colorMuted)
	label := re.NewStyle().Width(18)
	box := re.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1).Width(summaryWidth)

	grade := displayGrade(r.OverallGrade)
	gradeStyle := re.NewStyle().Bold(true).Foreground(gradeColor(grade))

	rows := []string{
		title.Render("Truthfulness Evaluation"),
		muted.Render(r.SourceDocument),
		"",
		label.Render("Grade") + gradeStyle.Render(grade),
		label.Render("Confidence") + percent1(r.OverallConfidence),
		label.Render("Claims") + fmt.Sprintf("%d", r.Statistics.TotalClaims),
		label.Render("Supported") + re.NewStyle().Foreground(colorGood).Render(fmt.Sprintf("%d", r.Statistics.Supported)),
		label.Render("Refuted") + re.NewStyle().Foreground(colorBad).Render(fmt.Sprintf("%d", r.Statistics.Refuted)),
		label.Render("Not enough info") + re.NewStyle().Foreground(colorFair).Render(fmt.Sprintf("%d", r.Statistics.NotEnoughInfo)),
	}
	if r.Summary != "" {
		rows = append(rows, "", r.Summary)
	}

	_, _ = fmt.Fprintln(w, box.Render(strings.Join(rows, "\n")))

	for _, v := range r.Verifications {
		claim, ok := r.ClaimByID(v.ClaimID)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%s %-16s %6s  %s", verdictIcon(v.Verdict), v.Verdict, percent(v.Confidence), oneLine(claim.Text, 60))
		_, _ = fmt.Fprintln(w, re.NewStyle().Foreground(verdictColor(v.Verdict)).Render(line))
	}
}

// PrintPaths lists written report files
func PrintPaths(w io.Writer, paths []string) {
	re := lipgloss.NewRenderer(w)
	ok := re.NewStyle().Foreground(colorGood)
	for _, p := range paths {
		_, _ = fmt.Fprintf(w, "%s Wrote %s\n", ok.Render("✓"), p)
	}
}

func gradeColor(grade string) lipgloss.Color {
	switch grade[0] {
	case 'A', 'B':
		return colorGood
	case 'C':
		return colorFair
	default:
		return colorBad
	}
}

func verdictColor(v model.Verdict) lipgloss.Color {
	switch v {
	case model.VerdictSupports:
		return colorGood
	case model.VerdictRefutes:
		return colorBad
	default:
		return colorFair
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
