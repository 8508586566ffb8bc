package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"percent":     percent,
	"percent1":    percent1,
	"verdictIcon": verdictIcon,
	"badgeClass":  badgeClass,
	"badgeText":   badgeText,
	"gradeClass":  gradeClass,
	"grade":       displayGrade,
	"source":      displaySource,
	"votes":       sortedVotes,
	"topEvidence": func(e []model.Evidence) []model.Evidence { return e[:min(len(e), 5)] },
}

// HTMLRenderer writes a standalone styled HTML page
type HTMLRenderer struct {
	opts Options
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded template
func NewHTMLRenderer(opts Options) (*HTMLRenderer, error) {
	tmpl, err := template.New("report.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &HTMLRenderer{opts: opts, tmpl: tmpl}, nil
}

type htmlRow struct {
	Claim        model.Claim
	Verification model.VerificationResult
}

type htmlData struct {
	Report  *model.Report
	Date    string
	Rows    []htmlRow
	Options Options
}

// Render implements Renderer
func (h *HTMLRenderer) Render(r *model.Report) ([]byte, error) {
	data := htmlData{
		Report:  r,
		Date:    r.GeneratedAt.Format("2006-01-02 15:04"),
		Options: h.opts,
	}
	for _, v := range r.Verifications {
		if claim, ok := r.ClaimByID(v.ClaimID); ok {
			data.Rows = append(data.Rows, htmlRow{Claim: claim, Verification: v})
		}
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension implements Renderer
func (h *HTMLRenderer) FileExtension() string {
	return ".html"
}

func badgeClass(v model.Verdict) string {
	switch v {
	case model.VerdictSupports:
		return "badge-success"
	case model.VerdictRefutes:
		return "badge-danger"
	default:
		return "badge-warning"
	}
}

func badgeText(v model.Verdict) string {
	switch v {
	case model.VerdictSupports:
		return "SUPPORTED"
	case model.VerdictRefutes:
		return "REFUTED"
	case model.VerdictNotEnoughInfo:
		return "NOT ENOUGH INFO"
	default:
		return string(v)
	}
}

func gradeClass(grade string) string {
	if !model.ValidGrade(grade) {
		return "grade-f"
	}
	return "grade-" + strings.ToLower(grade[:1])
}
