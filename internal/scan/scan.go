// Package scan recovers readable text fragments from semi-structured binary
// buffers by direct byte-level pattern matching. It is deliberately not a
// format-correct parser: input is untrusted and possibly corrupt, so every
// routine is a bounded forward scan that yields zero fragments instead of
// failing on malformed regions.
package scan

import (
	"strings"
	"unicode/utf8"
)

// Extraction methods recorded on each fragment.
const (
	MethodLiteral   = "literal-paren"
	MethodHex       = "hex-encoded"
	MethodTextBlock = "text-block"
	MethodWords     = "word-heuristic"
	MethodXMLNode   = "xml-node"
)

// Fragment is one contiguous run of decoded text recovered from a single
// structural unit, tagged with the byte offset it came from so callers can
// keep fragments in source order.
type Fragment struct {
	Text   string
	Offset int
	Method string
}

const (
	// Candidate spans longer than this are treated as binary noise.
	maxSpan = 50_000

	// Hard cap on fragments per Scan call.
	maxFragments = 4096

	// A BT without a matching ET inside this window is considered a
	// false positive; the scanner advances past the opener.
	maxTextBlockSpan = 16_384

	// Minimum hex digits before an angle-bracket run is worth decoding.
	minHexDigits = 8

	// If the structural strategies recover less than this many bytes of
	// text the readable-word heuristic runs as a last resort.
	wordFallbackThreshold = 64
)

// Scan extracts text fragments from buf using the structural strategies in
// priority order: parenthesized literal strings, hex strings, and BT...ET
// text-show blocks. The readable-word heuristic only runs when the
// structural passes recover almost nothing. Scan never fails; an
// unparseable region simply contributes no fragments.
func Scan(buf []byte) []Fragment {
	frags := make([]Fragment, 0, 64)
	frags = appendLiterals(frags, buf)
	frags = appendHexRuns(frags, buf)
	frags = appendTextBlocks(frags, buf)

	total := 0
	for _, f := range frags {
		total += len(f.Text)
	}
	if total < wordFallbackThreshold {
		frags = appendWordRuns(frags, buf)
	}
	return frags
}

// appendLiterals scans for (...) literal strings, decoding the standard
// escapes and octal sequences.
func appendLiterals(frags []Fragment, buf []byte) []Fragment {
	for i := 0; i < len(buf) && len(frags) < maxFragments; i++ {
		if buf[i] != '(' {
			continue
		}
		text, end, ok := decodeLiteral(buf, i)
		if !ok {
			continue
		}
		if keepFragment(text) {
			frags = append(frags, Fragment{Text: text, Offset: i, Method: MethodLiteral})
		}
		i = end
	}
	return frags
}

// decodeLiteral decodes the literal string opening at buf[open] == '('.
// Returns the decoded text, the index of the closing paren, and whether a
// balanced close was found within the span ceiling.
func decodeLiteral(buf []byte, open int) (string, int, bool) {
	var sb strings.Builder
	depth := 1
	limit := open + maxSpan
	if limit > len(buf) {
		limit = len(buf)
	}

	for i := open + 1; i < limit; i++ {
		c := buf[i]
		switch c {
		case '\\':
			if i+1 >= limit {
				return "", 0, false
			}
			i++
			switch buf[i] {
			case 'n', 'r':
				// Escaped line endings are author-intended breaks; both
				// normalize to newline so downstream splitting sees one
				// break style. Raw EOL bytes inside a literal are layout
				// and become spaces in the default case below.
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '(', ')', '\\':
				sb.WriteByte(buf[i])
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape, up to three digits.
				v := int(buf[i] - '0')
				for n := 0; n < 2 && i+1 < limit && buf[i+1] >= '0' && buf[i+1] <= '7'; n++ {
					i++
					v = v*8 + int(buf[i]-'0')
				}
				if v >= 0x20 && v < 0x7F {
					sb.WriteByte(byte(v))
				}
			default:
				// Unknown escape: keep the raw byte if printable.
				if printableASCII(buf[i]) {
					sb.WriteByte(buf[i])
				}
			}
		case '(':
			depth++
			sb.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i, true
			}
			sb.WriteByte(c)
		default:
			if printableASCII(c) {
				sb.WriteByte(c)
			} else if c == '\n' || c == '\r' {
				sb.WriteByte(' ')
			}
		}
	}
	return "", 0, false
}

// appendHexRuns scans for <hexdigits> strings and decodes them as sequences
// of 2-byte code units, keeping printable and common alphanumeric ranges.
// Dictionary markers (<<) are skipped outright.
func appendHexRuns(frags []Fragment, buf []byte) []Fragment {
	for i := 0; i < len(buf) && len(frags) < maxFragments; i++ {
		if buf[i] != '<' {
			continue
		}
		if i+1 < len(buf) && buf[i+1] == '<' {
			i++
			continue
		}

		limit := i + maxSpan
		if limit > len(buf) {
			limit = len(buf)
		}
		j := i + 1
		for j < limit && isHexDigit(buf[j]) {
			j++
		}
		if j >= limit || buf[j] != '>' || j-i-1 < minHexDigits {
			i = j
			continue
		}

		text := decodeHexUnits(buf[i+1 : j])
		if keepFragment(text) {
			frags = append(frags, Fragment{Text: text, Offset: i, Method: MethodHex})
		}
		i = j
	}
	return frags
}

// decodeHexUnits interprets hex digits as big-endian 2-byte code units and
// keeps only characters that plausibly belong to natural text.
func decodeHexUnits(hex []byte) string {
	var sb strings.Builder
	for i := 0; i+4 <= len(hex); i += 4 {
		v := 0
		for k := 0; k < 4; k++ {
			v = v<<4 | hexVal(hex[i+k])
		}
		switch {
		case v >= 0x20 && v < 0x7F:
			sb.WriteByte(byte(v))
		case v > 0x7F && v <= 0xFFFF && utf8.ValidRune(rune(v)):
			r := rune(v)
			if isWordRune(r) || r == ' ' || r == '.' || r == ',' {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

// appendTextBlocks scans for BT ... ET text-show blocks and extracts the
// operands of Tj and TJ operators inside them.
func appendTextBlocks(frags []Fragment, buf []byte) []Fragment {
	for i := 0; i+1 < len(buf) && len(frags) < maxFragments; i++ {
		if buf[i] != 'B' || buf[i+1] != 'T' {
			continue
		}
		if !delimitedAt(buf, i, 2) {
			continue
		}

		end := findBlockEnd(buf, i+2)
		if end < 0 {
			// No ET within the ceiling: treat the opener as noise.
			continue
		}

		block := buf[i+2 : end]
		frags = appendShowOperands(frags, block, i+2)
		i = end + 1
	}
	return frags
}

// findBlockEnd locates a delimited ET token after start, bounded by
// maxTextBlockSpan. Returns -1 when no close is found in the window.
func findBlockEnd(buf []byte, start int) int {
	limit := start + maxTextBlockSpan
	if limit > len(buf) {
		limit = len(buf)
	}
	for i := start; i+1 < limit; i++ {
		if buf[i] == 'E' && buf[i+1] == 'T' && delimitedAt(buf, i, 2) {
			return i
		}
	}
	return -1
}

// appendShowOperands walks a BT..ET block body collecting (literal)Tj and
// [array]TJ operands.
func appendShowOperands(frags []Fragment, block []byte, base int) []Fragment {
	for i := 0; i < len(block) && len(frags) < maxFragments; i++ {
		switch block[i] {
		case '(':
			text, end, ok := decodeLiteral(block, i)
			if !ok {
				continue
			}
			if followedByOperator(block, end+1, 'T', 'j') && keepFragment(text) {
				frags = append(frags, Fragment{Text: text, Offset: base + i, Method: MethodTextBlock})
			}
			i = end
		case '[':
			text, end, ok := decodeShowArray(block, i)
			if !ok {
				continue
			}
			if followedByOperator(block, end+1, 'T', 'J') && keepFragment(text) {
				frags = append(frags, Fragment{Text: text, Offset: base + i, Method: MethodTextBlock})
			}
			i = end
		}
	}
	return frags
}

// decodeShowArray decodes a [ (a) -250 (b) ] TJ array operand, joining the
// literal elements. Kerning numbers are ignored except that large negative
// adjustments conventionally stand in for inter-word spacing.
func decodeShowArray(block []byte, open int) (string, int, bool) {
	var sb strings.Builder
	limit := open + maxSpan
	if limit > len(block) {
		limit = len(block)
	}
	for i := open + 1; i < limit; i++ {
		switch block[i] {
		case ']':
			return sb.String(), i, true
		case '(':
			text, end, ok := decodeLiteral(block, i)
			if !ok {
				return "", 0, false
			}
			sb.WriteString(text)
			i = end
		case '<':
			j := i + 1
			for j < limit && isHexDigit(block[j]) {
				j++
			}
			if j < limit && block[j] == '>' {
				sb.WriteString(decodeHexUnits(block[i+1 : j]))
				i = j
			}
		}
	}
	return "", 0, false
}

// followedByOperator skips whitespace after pos and reports whether the
// next token is the two-byte operator ab.
func followedByOperator(block []byte, pos int, a, b byte) bool {
	i := pos
	for i < len(block) && (block[i] == ' ' || block[i] == '\n' || block[i] == '\r' || block[i] == '\t') {
		i++
	}
	if i+1 >= len(block) || block[i] != a || block[i+1] != b {
		return false
	}
	return delimitedAt(block, i, 2)
}

// appendWordRuns is the last-resort heuristic: runs of 3+ consecutive
// natural-language-looking words separated by single spaces.
func appendWordRuns(frags []Fragment, buf []byte) []Fragment {
	i := 0
	for i < len(buf) && len(frags) < maxFragments {
		start := i
		words := 0
		last := i
		for {
			wlen := wordAt(buf, last)
			if wlen == 0 {
				break
			}
			words++
			last += wlen
			if last < len(buf) && buf[last] == ' ' && wordAt(buf, last+1) > 0 {
				last++
				continue
			}
			break
		}
		if words >= 3 {
			frags = append(frags, Fragment{Text: string(buf[start:last]), Offset: start, Method: MethodWords})
			i = last
			continue
		}
		if last > i {
			i = last
		} else {
			i++
		}
	}
	return frags
}

// wordAt returns the length of a word-looking token at buf[i]: a letter
// followed by 2-15 lowercase letters.
func wordAt(buf []byte, i int) int {
	if i >= len(buf) || !isLetter(buf[i]) {
		return 0
	}
	j := i + 1
	for j < len(buf) && buf[j] >= 'a' && buf[j] <= 'z' {
		j++
	}
	n := j - i
	if n < 3 || n > 16 {
		return 0
	}
	return n
}

// keepFragment rejects pure-symbol and pure-numeric spans: a fragment must
// contain at least one run of two consecutive letters.
func keepFragment(s string) bool {
	if len(s) < 2 {
		return false
	}
	prev := false
	for i := 0; i < len(s); i++ {
		if isLetter(s[i]) {
			if prev {
				return true
			}
			prev = true
		} else {
			prev = false
		}
	}
	return false
}

func printableASCII(c byte) bool { return c >= 0x20 && c < 0x7F }

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		(r >= 0x00C0 && r <= 0x024F) // Latin-1 supplement + extended
}

// delimitedAt reports whether the token of length n starting at i is
// bounded by non-alphanumeric bytes on both sides, so substrings of longer
// identifiers are not mistaken for operators.
func delimitedAt(buf []byte, i, n int) bool {
	if i > 0 && isTokenByte(buf[i-1]) {
		return false
	}
	if i+n < len(buf) && isTokenByte(buf[i+n]) {
		return false
	}
	return true
}

func isTokenByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}
