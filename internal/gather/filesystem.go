package gather

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const (
	maxFileBytes      = 1 << 20
	matchesPerFile    = 3
	contextLines      = 2
	defaultMaxFiles   = 10
	fileContentLimit  = 1000
	maxSearchTerms    = 8
	minSearchTermRune = 4
)

var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true, "been": true,
	"were": true, "will": true, "which": true, "their": true, "there": true, "about": true,
	"into": true, "than": true, "they": true, "when": true, "what": true, "also": true,
	"each": true, "only": true, "such": true, "more": true, "most": true, "some": true,
	"does": true, "used": true, "uses": true, "using": true, "should": true, "would": true,
	"could": true, "these": true, "those": true, "other": true, "very": true, "your": true,
}

// FilesystemGatherer searches files under the evaluation's root path for claim keywords
type FilesystemGatherer struct {
	include  []string
	exclude  []string
	maxFiles int
	logger   *slog.Logger
}

// NewFilesystemGatherer creates a filesystem gatherer.
// include and exclude are doublestar globs relative to the root; an empty include matches every file.
func NewFilesystemGatherer(include, exclude []string, maxFiles int, logger *slog.Logger) (*FilesystemGatherer, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesystemGatherer{
		include:  include,
		exclude:  exclude,
		maxFiles: maxFiles,
		logger:   logger,
	}, nil
}

// Name implements Gatherer
func (g *FilesystemGatherer) Name() string {
	return "filesystem"
}

type fileHit struct {
	path      string
	relevance float64
	content   string
}

// Gather implements Gatherer. Without a root path it returns no evidence.
func (g *FilesystemGatherer) Gather(ctx context.Context, claim model.Claim, gctx Context) ([]model.Evidence, error) {
	root := gctx.RootPath()
	if root == "" {
		g.logger.Warn("no root path in context, skipping filesystem search", "claim_id", claim.ID)
		return nil, nil
	}

	root, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	terms := SearchTerms(claim.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []fileHit
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			g.logger.Debug("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if g.excluded(rel + "/_") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if g.excluded(rel) || !g.included(rel) {
			return nil
		}
		if !within(root, path) {
			g.logger.Warn("skipping file outside root", "path", rel)
			return nil
		}

		if hit, ok := scanFile(path, rel, terms); ok {
			hits = append(hits, hit)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", root, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].relevance != hits[j].relevance {
			return hits[i].relevance > hits[j].relevance
		}
		return hits[i].path < hits[j].path
	})
	if len(hits) > g.maxFiles {
		hits = hits[:g.maxFiles]
	}

	evidence := make([]model.Evidence, 0, len(hits))
	for _, h := range hits {
		evidence = append(evidence, model.NewEvidence(h.path, model.SourceFilesystem, h.content, h.relevance))
	}

	g.logger.Debug("filesystem evidence gathered", "claim_id", claim.ID, "terms", terms, "items", len(evidence))
	return evidence, nil
}

func (g *FilesystemGatherer) included(rel string) bool {
	if len(g.include) == 0 {
		return true
	}
	for _, p := range g.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (g *FilesystemGatherer) excluded(rel string) bool {
	for _, p := range g.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SearchTerms picks the distinctive lowercase words of a claim, in order of appearance
func SearchTerms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.'
	})

	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		w = strings.Trim(w, "-.")
		if len([]rune(w)) < minSearchTermRune && !isNumeric(w) {
			continue
		}
		if stopwords[w] || seen[w] || w == "" {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// scanFile finds term matches in one file and renders up to matchesPerFile of them with context
func scanFile(path, rel string, terms []string) (fileHit, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxFileBytes {
		return fileHit{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil || bytes.IndexByte(data[:min(len(data), 512)], 0) >= 0 {
		return fileHit{}, false
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxFileBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	found := make(map[string]bool)
	var blocks []string
	for i, line := range lines {
		lower := strings.ToLower(line)
		matched := false
		for _, t := range terms {
			if strings.Contains(lower, t) {
				found[t] = true
				matched = true
			}
		}
		if !matched || len(blocks) == matchesPerFile {
			continue
		}

		from, to := max(0, i-contextLines), min(len(lines), i+contextLines+1)
		var b strings.Builder
		fmt.Fprintf(&b, "Line %d:", i+1)
		for j := from; j < to; j++ {
			fmt.Fprintf(&b, "\n%d: %s", j+1, lines[j])
		}
		blocks = append(blocks, b.String())
	}

	if len(found) == 0 {
		return fileHit{}, false
	}
	return fileHit{
		path:      rel,
		relevance: model.Clamp01(float64(len(found)) / float64(len(terms))),
		content:   truncateRunes(strings.Join(blocks, "\n---\n"), fileContentLimit),
	}, true
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root path: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root path %s is not a directory", root)
	}
	return resolved, nil
}

// within reports whether path, after resolving symlinks, stays under root
func within(root, path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
