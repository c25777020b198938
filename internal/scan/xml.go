package scan

import (
	"bytes"
	"strconv"
	"strings"
)

// TagText extracts the text content of every <tag ...>...</tag> element in
// buf as fragments, decoding the five standard XML entities and numeric
// character references. It is an index scan, not an XML parse: OOXML part
// bodies are machine-generated and regular enough that matching the open
// and close tags directly is reliable, and it stays cheap on multi-megabyte
// parts.
func TagText(buf []byte, tag string) []Fragment {
	open := "<" + tag
	closeTag := "</" + tag + ">"
	var frags []Fragment

	i := 0
	for len(frags) < maxFragments {
		start := indexFrom(buf, open, i)
		if start < 0 {
			break
		}
		// Reject prefix matches such as <w:tbl when looking for <w:t.
		if next := start + len(open); next < len(buf) && buf[next] != '>' && buf[next] != ' ' && buf[next] != '/' {
			i = next
			continue
		}
		// The open tag may carry attributes; find its closing '>'.
		gt := indexByteFrom(buf, '>', start+len(open))
		if gt < 0 {
			break
		}
		// Self-closing run (<w:t/>) carries no text.
		if buf[gt-1] == '/' {
			i = gt + 1
			continue
		}
		end := indexFrom(buf, closeTag, gt+1)
		if end < 0 || end-gt > maxSpan {
			i = gt + 1
			continue
		}
		text := DecodeEntities(string(buf[gt+1 : end]))
		if text != "" {
			frags = append(frags, Fragment{Text: text, Offset: start, Method: MethodXMLNode})
		}
		i = end + len(closeTag)
	}
	return frags
}

// StripTags removes everything between < and > and keeps printable text,
// the coarse fallback when the expected text-run tags yield too little.
func StripTags(buf []byte) string {
	var sb strings.Builder
	inTag := false
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c == '<':
			inTag = true
			sb.WriteByte(' ')
		case c == '>':
			inTag = false
		case !inTag && (printableASCII(c) || c == '\n' || c == '\t'):
			sb.WriteByte(c)
		}
	}
	return DecodeEntities(collapseSpaces(sb.String()))
}

// DecodeEntities resolves the five predefined XML entities plus decimal and
// hex numeric character references. Unknown entities pass through verbatim.
func DecodeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			sb.WriteByte(s[i])
			continue
		}
		semi := strings.IndexByte(s[i:], ';')
		if semi < 0 || semi > 10 {
			sb.WriteByte(s[i])
			continue
		}
		ent := s[i+1 : i+semi]
		switch {
		case ent == "amp":
			sb.WriteByte('&')
		case ent == "lt":
			sb.WriteByte('<')
		case ent == "gt":
			sb.WriteByte('>')
		case ent == "quot":
			sb.WriteByte('"')
		case ent == "apos":
			sb.WriteByte('\'')
		case strings.HasPrefix(ent, "#x") || strings.HasPrefix(ent, "#X"):
			if v, err := strconv.ParseInt(ent[2:], 16, 32); err == nil && v > 0 && v <= 0x10FFFF {
				sb.WriteRune(rune(v))
			}
		case strings.HasPrefix(ent, "#"):
			if v, err := strconv.ParseInt(ent[1:], 10, 32); err == nil && v > 0 && v <= 0x10FFFF {
				sb.WriteRune(rune(v))
			}
		default:
			sb.WriteByte(s[i])
			continue
		}
		i += semi
	}
	return sb.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func indexFrom(buf []byte, sub string, from int) int {
	if from >= len(buf) {
		return -1
	}
	idx := bytes.Index(buf[from:], []byte(sub))
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexByteFrom(buf []byte, c byte, from int) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == c {
			return i
		}
	}
	return -1
}
