// Package office extracts text from OOXML containers. The document body
// parts are not parsed as XML; text runs are pulled straight from the raw
// part bytes, which tolerates the truncated or mildly corrupt archives
// that real uploads produce.
package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

const (
	// defaultMaxZipEntryBytes bounds a single decompressed part. OOXML
	// bodies beyond this are almost certainly zip bombs.
	defaultMaxZipEntryBytes = int64(64 << 20)

	// defaultMaxZipMetadataBytes bounds docProps/core.xml.
	defaultMaxZipMetadataBytes = int64(1 << 20)

	// minPrimaryChars is the threshold under which the dedicated text-run
	// tags are considered to have failed and the strip-all-tags fallback
	// runs instead.
	minPrimaryChars = 32
)

func readZipFile(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		lr := &io.LimitedReader{R: rc, N: limit + 1}
		b, err := io.ReadAll(lr)
		if err != nil {
			return nil, err
		}
		if int64(len(b)) > limit {
			return nil, fmt.Errorf("%s exceeds %d byte limit", name, limit)
		}
		return b, nil
	}
	return nil, fmt.Errorf("missing %s", name)
}

// paragraphText joins the text runs of each paragraph-delimited region of
// an OOXML part. Runs inside a paragraph concatenate without separators
// because a word may be split across runs; paragraphs join on newlines.
func paragraphText(body []byte, paragraphClose, runTag string) string {
	var lines []string
	for _, para := range bytes.Split(body, []byte(paragraphClose)) {
		var sb strings.Builder
		for _, f := range scan.TagText(para, runTag) {
			sb.WriteString(f.Text)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// withStripFallback applies the strip-all-tags fallback when the primary
// tag extraction came up under the minimum.
func withStripFallback(primary string, body []byte) string {
	if len(primary) >= minPrimaryChars {
		return primary
	}
	if fallback := scan.StripTags(body); len(fallback) > len(primary) {
		return fallback
	}
	return primary
}

// parseCoreMetadata extracts title, author, and dates from docProps/core.xml.
// The part is tiny, trusted-shape XML, so a real decoder is fine here.
func parseCoreMetadata(zr *zip.Reader, limit int64) map[string]string {
	b, err := readZipFile(zr, "docProps/core.xml", limit)
	if err != nil {
		return nil
	}

	meta := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(b))
	var currentTag string

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			currentTag = t.Name.Local
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			switch currentTag {
			case "title":
				meta["title"] = val
			case "creator":
				meta["author"] = val
			case "created":
				meta["created"] = val
			case "modified":
				meta["modified"] = val
			case "subject":
				meta["subject"] = val
			}
		case xml.EndElement:
			currentTag = ""
		}
	}

	if len(meta) == 0 {
		return nil
	}
	return meta
}
