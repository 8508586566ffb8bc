// Package report renders evaluation reports as JSON, Markdown and HTML, and
// prints the terminal summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Renderer turns a report into bytes in one output format
type Renderer interface {
	Render(r *model.Report) ([]byte, error)
	FileExtension() string
}

// Options control optional report sections
type Options struct {
	IncludeExplanations bool
	IncludeModelVotes   bool
}

// DefaultOptions include every section
func DefaultOptions() Options {
	return Options{IncludeExplanations: true, IncludeModelVotes: true}
}

// displayGrade returns the grade to print, or N/A when r carries none or a malformed one
func displayGrade(grade string) string {
	if !model.ValidGrade(grade) {
		return "N/A"
	}
	return grade
}

// Formats lists the supported format names
var Formats = []string{"json", "markdown", "html"}

// ForFormat returns the renderer for a format name
func ForFormat(name string, opts Options) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSONRenderer{}, nil
	case "markdown", "md":
		return MarkdownRenderer{Options: opts}, nil
	case "html":
		return NewHTMLRenderer(opts)
	default:
		return nil, fmt.Errorf("unknown report format %q (supported: %s)", name, strings.Join(Formats, ", "))
	}
}

// ForPath picks a renderer from a file extension, defaulting to Markdown
func ForPath(path string, opts Options) (Renderer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ForFormat("json", opts)
	case ".html", ".htm":
		return ForFormat("html", opts)
	default:
		return ForFormat("markdown", opts)
	}
}

// WriteAll renders r with every renderer into dir/base.<ext> and returns the written paths
func WriteAll(r *model.Report, dir, base string, renderers []Renderer) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(renderers))
	for _, renderer := range renderers {
		data, err := renderer.Render(r)
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", renderer.FileExtension(), err)
		}

		path := filepath.Join(dir, base+renderer.FileExtension())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BaseName derives an output file stem from a document path or URL
func BaseName(document string) string {
	name := filepath.Base(strings.TrimRight(document, "/"))
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	return name + ".truth"
}

func verdictIcon(v model.Verdict) string {
	switch v {
	case model.VerdictSupports:
		return "✅"
	case model.VerdictRefutes:
		return "❌"
	case model.VerdictNotEnoughInfo:
		return "⚠️"
	default:
		return "❓"
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func percent1(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func displaySource(e model.Evidence) string {
	if e.SourceType == model.SourceFilesystem {
		return filepath.Base(e.Source)
	}
	return e.Source
}

func sortedVotes(votes map[string]model.Verdict) []string {
	ids := make([]string, 0, len(votes))
	for id := range votes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
