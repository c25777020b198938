package plaintext

import (
	"bytes"
	"context"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

type HTMLExtractor struct {
	maxBytes int64
}

func NewHTML(maxBytes int64) *HTMLExtractor { return &HTMLExtractor{maxBytes: maxBytes} }

func (e *HTMLExtractor) Name() string             { return "document/html" }
func (e *HTMLExtractor) MaxFileSize() int64       { return e.maxBytes }
func (e *HTMLExtractor) SupportedTypes() []string { return []string{"text/html"} }
func (e *HTMLExtractor) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

func (e *HTMLExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}

	text, meta := htmlToText(b)
	res := extract.FromPages([]string{text}, "native")
	if len(meta) > 0 {
		res.Metadata = meta
	}
	return res, nil
}

// htmlToText walks the parsed document keeping heading and body text and
// dropping script, style, and chrome elements.
func htmlToText(b []byte) (string, map[string]string) {
	meta := map[string]string{}
	node, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return string(b), meta
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			switch tag {
			case "script", "style", "nav", "footer", "aside":
				return
			case "title":
				if n.FirstChild != nil {
					meta["title"] = strings.TrimSpace(n.FirstChild.Data)
				}
			case "h1", "h2", "h3", "p", "li":
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					lines = append(lines, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	if len(lines) == 0 {
		if plain := strings.TrimSpace(nodeText(node)); plain != "" {
			lines = append(lines, plain)
		}
	}
	return strings.Join(lines, "\n\n"), meta
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
