package structured

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCSVRendersMarkdownTable(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "name,count\nwidgets,4\ngears,7\n")
	e := NewCSV(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "data.csv"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.FullText, "| name | count |") {
		t.Fatalf("header row missing: %q", res.FullText)
	}
	if !strings.Contains(res.FullText, "| gears | 7 |") {
		t.Fatalf("data row missing: %q", res.FullText)
	}
	if res.Metadata["rows"] != "3" || res.Metadata["delimiter"] != "," {
		t.Fatalf("metadata: %v", res.Metadata)
	}
}

func TestCSVDetectsSemicolonDelimiter(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "a;b\n1;2\n")
	e := NewCSV(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "data.csv"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Metadata["delimiter"] != ";" {
		t.Fatalf("delimiter: %v", res.Metadata)
	}
}

func TestJSONPrettyPrints(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.json", `{"b":1,"a":{"nested":true}}`)
	e := NewJSON(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "data.json"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.FullText, "\"nested\": true") {
		t.Fatalf("not pretty-printed: %q", res.FullText)
	}
}

func TestJSONLinesSeparatedPerRecord(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.jsonl", "{\"a\":1}\n{\"a\":2}\n")
	e := NewJSON(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "data.jsonl"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Count(res.FullText, "---") != 1 {
		t.Fatalf("expected one record separator: %q", res.FullText)
	}
}

func TestXMLStripsMarkup(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.xml", `<root><item attr="x">alpha &amp; beta</item><item>gamma</item></root>`)
	e := NewXML(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "doc.xml"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.FullText, "alpha & beta") {
		t.Fatalf("entity not decoded: %q", res.FullText)
	}
	if strings.Contains(res.FullText, "<item") {
		t.Fatalf("markup leaked: %q", res.FullText)
	}
}

func TestYAMLRoundTripsCleanly(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.yaml", "b: 2\na: 1\n")
	e := NewYAML(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "cfg.yaml"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.FullText, "a: 1") || !strings.Contains(res.FullText, "b: 2") {
		t.Fatalf("round trip lost keys: %q", res.FullText)
	}
}

func TestYAMLMalformedFallsBackToRaw(t *testing.T) {
	t.Parallel()

	body := "key: [unclosed\n  - broken"
	path := writeFile(t, "cfg.yaml", body)
	e := NewYAML(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, FileName: "cfg.yaml"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.FullText, "unclosed") {
		t.Fatalf("raw fallback missing: %q", res.FullText)
	}
}
