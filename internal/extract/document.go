package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Document formats
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

var excessiveLines = regexp.MustCompile(`\n{4,}`)

// Document is a source document normalized to markdown-ish text
type Document struct {
	Path   string
	Title  string
	Format string // format of the original input
	Text   string
}

// LoadDocument reads and prepares the document at path
func LoadDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	return PrepareDocument(raw, path)
}

// PrepareDocument normalizes raw input. HTML is converted to markdown; other input is kept as is.
func PrepareDocument(raw []byte, path string) (Document, error) {
	doc := Document{Path: path}

	switch {
	case isHTML(raw, path):
		doc.Format = FormatHTML
		doc.Title = htmlTitle(raw)

		converter := md.NewConverter("", true, nil)
		converter.Use(plugin.GitHubFlavored())
		converter.Remove("script", "style", "noscript", "iframe", "nav", "footer")

		markdown, err := converter.ConvertString(string(raw))
		if err != nil {
			return Document{}, fmt.Errorf("convert html: %w", err)
		}
		doc.Text = strings.TrimSpace(excessiveLines.ReplaceAllString(markdown, "\n\n\n"))

	case isMarkdown(path):
		doc.Format = FormatMarkdown
		doc.Text = string(raw)
		doc.Title = markdownTitle(doc.Text)

	default:
		doc.Format = FormatText
		doc.Text = string(raw)
	}

	if doc.Title == "" {
		doc.Title = filepath.Base(path)
	}
	return doc, nil
}

func isHTML(raw []byte, path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	case ".md", ".markdown", ".txt":
		return false
	}
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(http.DetectContentType(head), "text/html") ||
		bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

// htmlTitle returns the <title> text, or the first <h1> when there is none
func htmlTitle(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var title, h1 string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = strings.TrimSpace(textOf(n))
				}
			case "h1":
				if h1 == "" {
					h1 = strings.TrimSpace(textOf(n))
				}
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		return title
	}
	return h1
}

// textOf concatenates the text nodes under n
func textOf(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
