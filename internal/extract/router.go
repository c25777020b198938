package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Router owns the native extraction path: fetch the file to a temp
// location, resolve an extractor from the sniffed MIME type and the file
// extension, and run it. Quality gating and OCR fallback sit above the
// router, in the orchestrator.
type Router struct {
	registry        *Registry
	maxFileBytes    int64
	downloadTimeout time.Duration
}

func NewRouter(registry *Registry, maxFileBytes int64, downloadTimeout time.Duration) *Router {
	return &Router{registry: registry, maxFileBytes: maxFileBytes, downloadTimeout: downloadTimeout}
}

// Prepare downloads the request's file and builds the extraction Job.
// The caller owns the returned DownloadedFile and must Cleanup it.
func (r *Router) Prepare(ctx context.Context, presignedURL, fileName string) (DownloadedFile, Job, error) {
	if strings.TrimSpace(presignedURL) == "" {
		return DownloadedFile{}, Job{}, fmt.Errorf("presignedUrl required")
	}

	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		fileName = "input.bin"
	}

	dl, err := r.fetch(ctx, presignedURL, fileName)
	if err != nil {
		return DownloadedFile{}, Job{}, err
	}

	return dl, Job{
		PresignedURL: presignedURL,
		LocalPath:    dl.Path,
		FileName:     fileName,
		MIMEType:     dl.MIMEType,
		FileSize:     dl.Size,
	}, nil
}

// Native resolves the extractor for the job and runs it. InvalidContainer
// errors from the extractor pass through typed so the orchestrator can
// decide whether OCR fallback still applies.
func (r *Router) Native(ctx context.Context, job Job) (Result, error) {
	ext := strings.ToLower(filepath.Ext(job.FileName))
	extractor, err := r.registry.Resolve(job.MIMEType, ext)
	if err != nil {
		return Result{}, err
	}

	if max := extractor.MaxFileSize(); max > 0 && job.FileSize > max {
		return Result{}, fmt.Errorf("file exceeds %s limit (%dMB)", extractor.Name(), max/(1<<20))
	}

	res, err := extractor.Extract(ctx, job)
	if err != nil {
		return Result{}, err
	}
	if res.CharCount == 0 && res.FullText != "" {
		res.WordCount, res.CharCount = BuildCounts(res.FullText)
	}
	return res, nil
}
