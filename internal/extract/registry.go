package extract

import (
	"fmt"
	"strings"
)

// Registry maps MIME types and file extensions to extractors. Extension
// match wins over MIME match: declared MIME types from upstream callers
// are less trustworthy than the file name they chose.
type Registry struct {
	byMIME      map[string]Extractor
	byExtension map[string]Extractor
	extractors  []Extractor
}

func NewRegistry() *Registry {
	return &Registry{
		byMIME:      make(map[string]Extractor),
		byExtension: make(map[string]Extractor),
	}
}

func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
	for _, mt := range e.SupportedTypes() {
		if key := strings.ToLower(strings.TrimSpace(mt)); key != "" {
			r.byMIME[key] = e
		}
	}
	for _, ext := range e.SupportedExtensions() {
		if key := strings.ToLower(strings.TrimSpace(ext)); key != "" {
			r.byExtension[key] = e
		}
	}
}

// Names lists registered extractors in registration order, for the health
// endpoint.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for _, e := range r.extractors {
		names = append(names, e.Name())
	}
	return names
}

func (r *Registry) Resolve(mimeType, extension string) (Extractor, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(strings.TrimSpace(extension))

	if e, ok := r.byExtension[ext]; ok {
		return e, nil
	}

	if e, ok := r.byMIME[mt]; ok {
		return e, nil
	}

	// Declared MIME types may carry parameters (charset etc).
	if i := strings.Index(mt, ";"); i > 0 {
		if e, ok := r.byMIME[strings.TrimSpace(mt[:i])]; ok {
			return e, nil
		}
	}

	// Any unrecognized text/* subtype decodes fine as plain text.
	if strings.HasPrefix(mt, "text/") {
		if e, ok := r.byMIME["text/plain"]; ok {
			return e, nil
		}
	}

	return nil, fmt.Errorf("no extractor registered for mime=%q extension=%q", mimeType, extension)
}
