// Package pipeline orchestrates one document's extraction end to end:
// native extraction, quality gating, OCR fallback, and final assembly.
// One orchestrator serves many documents concurrently; all per-document
// state lives in locals.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/toricodesthings/document-intelligence-service/internal/chunk"
	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/ocr"
	"github.com/toricodesthings/document-intelligence-service/internal/pages"
	"github.com/toricodesthings/document-intelligence-service/internal/quality"
)

type Config struct {
	// MinQualityChars is the native-output length below which OCR runs
	// even when quality classification passes.
	MinQualityChars int

	Quality quality.Thresholds
}

func (c Config) withDefaults() Config {
	if c.MinQualityChars <= 0 {
		c.MinQualityChars = 100
	}
	return c
}

// Source describes the document to extract. LocalPath must point at the
// downloaded bytes; SignedURL, when set, lets OCR providers reference the
// original object without re-uploading it.
type Source struct {
	LocalPath string
	SignedURL string
	FileName  string
	MIMEType  string
	Size      int64
}

type Orchestrator struct {
	router *extract.Router
	chain  *ocr.Chain
	cfg    Config
	logger *slog.Logger
}

// New builds an orchestrator. chain may be nil when no OCR provider is
// configured; extraction then runs native-only.
func New(router *extract.Router, chain *ocr.Chain, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{router: router, chain: chain, cfg: cfg.withDefaults(), logger: logger}
}

// ExtractDocument runs the full strategy for one document. The returned
// error covers only infrastructure failures (unresolvable type, canceled
// context, unreadable file); everything else, including "no text found
// anywhere", comes back as a Result with an explanatory page.
//
// Large files go to the OCR chain first: the local windowed pass caps
// out on them anyway, while the remote providers take the object whole
// by URL. The capped local pass is the fallback when the chain is
// unconfigured or its output is inadequate.
func (o *Orchestrator) ExtractDocument(ctx context.Context, src Source, sink ProgressFunc) (extract.Result, error) {
	progress := newTracker(sink)
	progress.emit(5, "starting extraction")

	remoteTried := false
	remoteText := ""
	if o.chain != nil && chunk.Classify(src.Size) == chunk.Large {
		progress.emit(8, "large file, trying remote extraction first")
		remoteText = o.runOCR(ctx, src, progress, 10, 55)
		remoteTried = true

		if fixed := pages.FixOCRSpacing(remoteText); o.adequate(fixed) {
			res := o.assemble(fixed, extract.Result{}, "ocr")
			progress.emit(100, "extraction complete")
			return res, nil
		}
		o.logger.Warn("remote extraction inadequate, falling back to capped local pass",
			"file", src.FileName, "size", src.Size)
	}

	progress.emit(10, "reading document")
	job := extract.Job{
		LocalPath:    src.LocalPath,
		PresignedURL: src.SignedURL,
		FileName:     src.FileName,
		MIMEType:     src.MIMEType,
		FileSize:     src.Size,
	}
	job = extract.WithWindowProgress(job, func(done, total int) {
		if total <= 1 {
			return
		}
		progress.emit(10+done*50/total, fmt.Sprintf("read window %d of %d", done, total))
	})
	native, nativeErr := o.router.Native(ctx, job)
	if nativeErr != nil {
		if ctx.Err() != nil {
			return extract.Result{}, ctx.Err()
		}
		// A broken container still renders for OCR providers; anything
		// else (I/O, unreadable path) is a real failure.
		if extract.KindOf(nativeErr) != extract.KindInvalidContainer {
			return extract.Result{}, nativeErr
		}
		o.logger.Warn("native extraction failed, container invalid",
			"file", src.FileName, "error", nativeErr)
		native = extract.Result{Method: "native"}
	}
	progress.emit(60, "native extraction complete")

	progress.emit(70, "checking text quality")
	nativeText := native.FullText
	metrics := quality.Assess(nativeText, o.cfg.Quality)

	finalText := nativeText
	method := native.Method
	ocrExhausted := false

	if o.needsOCR(metrics, nativeText) {
		o.logger.Info("native output inadequate, trying OCR",
			"file", src.FileName, "quality", metrics.Class, "chars", len(nativeText))

		// The chain ran already for large files; its output stands.
		ocrText := remoteText
		if !remoteTried {
			ocrText = o.runOCR(ctx, src, progress, 75, 95)
		}
		if ocrText == "" {
			ocrExhausted = o.chain != nil
		} else if len(ocrText) > len(finalText) {
			// Adopt OCR output only when it strictly improves on the
			// native result.
			finalText = pages.FixOCRSpacing(ocrText)
			method = "ocr"
		}
	}

	res := o.assemble(finalText, native, method)
	if ocrExhausted && !o.adequate(res.FullText) {
		// Every fallback is spent and the text is still unusable; flag
		// the document and say what a human can do about it.
		res.NeedsManualIntervention = true
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		res.Metadata["remediation"] = extract.NewOcrExhausted().Message
	}

	progress.emit(100, "extraction complete")
	return res, nil
}

func (o *Orchestrator) needsOCR(m quality.Metrics, text string) bool {
	return m.Class == quality.Garbage || len(text) < o.cfg.MinQualityChars
}

// adequate reports whether text stands on its own, with no fallback needed.
func (o *Orchestrator) adequate(text string) bool {
	return !o.needsOCR(quality.Assess(text, o.cfg.Quality), text)
}

// runOCR drives the chain, reporting each provider attempt as a progress
// step inside the [from, max] band.
func (o *Orchestrator) runOCR(ctx context.Context, src Source, progress *tracker, from, max int) string {
	if o.chain == nil {
		return ""
	}
	return o.chain.Run(ctx, ocr.Request{
		LocalPath: src.LocalPath,
		SignedURL: src.SignedURL,
		FileName:  src.FileName,
		MIMEType:  src.MIMEType,
		FileSize:  src.Size,
	}, func(provider string) {
		progress.emitStep(from, max, "running OCR via "+provider)
	})
}

// assemble produces the final result. Extractors that already paginated
// (slides, sheets) keep their page structure for native output; single
// page output is re-paginated against the estimated page count, with
// sentence dedup removing chunk-overlap artifacts first.
func (o *Orchestrator) assemble(text string, native extract.Result, method string) extract.Result {
	var res extract.Result
	if method == native.Method && len(native.Pages) > 1 {
		res = native
	} else {
		deduped := pages.DedupSentences(text)
		res = extract.FromPages(pages.Paginate(deduped, estimatedPages(native)), method)
		res.Metadata = native.Metadata
	}

	res.Quality = string(quality.Assess(res.FullText, o.cfg.Quality).Class)
	return res
}

func estimatedPages(native extract.Result) int {
	if native.Metadata == nil {
		return 1
	}
	n, err := strconv.Atoi(native.Metadata["estimatedPages"])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
