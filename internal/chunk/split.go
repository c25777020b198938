package chunk

import (
	"fmt"
	"strings"
)

// SplitText divides text into chunks of at most maxChars characters where
// consecutive chunks share overlapChars characters, so content cut at a
// boundary stays whole in at least one chunk. The step between chunk
// starts is maxChars-overlapChars; the final chunk ends exactly at the end
// of the text. Counting is by rune, not byte, so multi-byte characters are
// never split.
func SplitText(text string, maxChars, overlapChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("chunk: maxChars must be positive, got %d", maxChars)
	}
	if overlapChars < 0 {
		return nil, fmt.Errorf("chunk: overlapChars must not be negative, got %d", overlapChars)
	}
	if overlapChars >= maxChars {
		return nil, fmt.Errorf("chunk: overlap %d must be smaller than chunk size %d", overlapChars, maxChars)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	stride := maxChars - overlapChars

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
