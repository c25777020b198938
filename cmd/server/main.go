package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/toricodesthings/document-intelligence-service/internal/chunk"
	"github.com/toricodesthings/document-intelligence-service/internal/config"
	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	ebookextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/ebook"
	officeextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/office"
	opendocumentextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/opendocument"
	pdfextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/pdf"
	plaintextextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/plaintext"
	structuredextractor "github.com/toricodesthings/document-intelligence-service/internal/extractors/structured"
	"github.com/toricodesthings/document-intelligence-service/internal/ocr"
	"github.com/toricodesthings/document-intelligence-service/internal/pipeline"
	"github.com/toricodesthings/document-intelligence-service/internal/quality"
	"github.com/toricodesthings/document-intelligence-service/internal/status"
	"github.com/toricodesthings/document-intelligence-service/internal/storage"
)

var (
	cfg    config.Config
	logger *slog.Logger

	requestSem *semaphore.Weighted
	extractRt  *extract.Router
	extractReg *extract.Registry
	orch       *pipeline.Orchestrator
	statusSink status.Sink
	objects    storage.Store

	// Per-IP rate limiters
	limiters = &sync.Map{}

	metrics = &serverMetrics{}
)

type serverMetrics struct {
	mu            sync.RWMutex
	totalRequests int64
	activeReqs    int64
}

func (m *serverMetrics) incActive() {
	m.mu.Lock()
	m.activeReqs++
	m.totalRequests++
	m.mu.Unlock()
}
func (m *serverMetrics) decActive() {
	m.mu.Lock()
	m.activeReqs--
	m.mu.Unlock()
}
func (m *serverMetrics) get() (total, active int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalRequests, m.activeReqs
}

func main() {
	cfg = config.Load()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	requestSem = semaphore.NewWeighted(cfg.MaxConcurrentRequests)

	registry := extract.NewRegistry()
	extractReg = registry

	budget := chunk.Budget{MaxBytes: cfg.MaxProcessBytes, MaxDuration: cfg.MaxProcessDuration}

	registry.Register(pdfextractor.New(cfg.MaxFileBytes, budget))
	registry.Register(officeextractor.NewDOCX(cfg.MaxFileBytes))
	registry.Register(officeextractor.NewPPTX(cfg.MaxFileBytes))
	registry.Register(officeextractor.NewXLSX(cfg.MaxFileBytes))
	registry.Register(officeextractor.NewLegacy(cfg.MaxFileBytes))
	registry.Register(opendocumentextractor.New(cfg.MaxFileBytes))
	registry.Register(ebookextractor.NewEPUB(cfg.MaxFileBytes))
	registry.Register(plaintextextractor.New(cfg.MaxFileBytes))
	registry.Register(plaintextextractor.NewHTML(cfg.MaxFileBytes))
	registry.Register(plaintextextractor.NewRTF(cfg.MaxFileBytes))
	registry.Register(structuredextractor.NewCSV(cfg.MaxFileBytes))
	registry.Register(structuredextractor.NewJSON(cfg.MaxFileBytes))
	registry.Register(structuredextractor.NewXML(cfg.MaxFileBytes))
	registry.Register(structuredextractor.NewYAML(cfg.MaxFileBytes))

	extractRt = extract.NewRouter(registry, cfg.MaxFileBytes, cfg.DownloadTimeout)

	orch = pipeline.New(extractRt, buildOCRChain(), pipeline.Config{
		MinQualityChars: cfg.MinQualityChars,
		Quality:         quality.Thresholds{},
	}, logger)

	statusSink = status.NewHTTP(cfg.StatusEndpoint, cfg.StatusToken, logger)
	if cfg.StorageEndpoint != "" {
		objects = storage.NewHTTP(cfg.StorageEndpoint, cfg.StorageToken, cfg.MaxFileBytes, 0)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/metrics", withInternalAuth(handleMetrics))

	mux.HandleFunc("/extract",
		withInternalAuth(
			withRateLimit(
				withMethod("POST",
					withConcurrencyLimit(handleExtract)))))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withLogging(withRecovery(mux)),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go cleanupRateLimiters()

	logger.Info("listening", "addr", srv.Addr,
		"maxConcurrent", cfg.MaxConcurrentRequests, "extractors", registry.Names())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

// buildOCRChain assembles providers in cost order. Unconfigured providers
// are left out rather than registered to fail at runtime.
func buildOCRChain() *ocr.Chain {
	limiter := ocr.NewLimiter(cfg.MaxOCRConcurrent)
	creds := googleCredentials(cfg.DriveCredentialsFile)

	var providers []ocr.Provider

	docai := ocr.DocAIConfig{
		ProjectID:   cfg.DocAIProjectID,
		Location:    cfg.DocAILocation,
		ProcessorID: cfg.DocAIProcessorID,
	}
	if docai.ProjectID != "" && docai.ProcessorID != "" {
		providers = append(providers, ocr.NewDocAI(docai, creds, limiter, logger))
	}

	if cfg.MistralAPIKey != "" {
		providers = append(providers, ocr.NewVisionOCR(ocr.VisionOCRConfig{
			APIKey: cfg.MistralAPIKey,
			Model:  cfg.VisionModel,
		}, limiter))
	}

	if cfg.DriveCredentialsFile != "" {
		providers = append(providers, ocr.NewDrive(creds, logger))
	}

	if cfg.OpenRouterAPIKey != "" {
		providers = append(providers, ocr.NewLLMOCR(ocr.LLMOCRConfig{
			APIKey: cfg.OpenRouterAPIKey,
			Model:  cfg.LLMModel,
		}, limiter))
	}

	if len(providers) == 0 {
		logger.Warn("no OCR provider configured, scanned documents will not be recovered")
		return nil
	}
	return ocr.NewChain(cfg.MinOCRTextChars, logger, providers...)
}

// googleCredentials mints and caches an access token from a service
// account file. The zero CredentialCache is returned when no file is
// configured or minting fails; providers treat that as "unavailable".
func googleCredentials(path string) ocr.CredentialSource {
	var mu sync.Mutex
	var cached ocr.CredentialCache

	return func() ocr.CredentialCache {
		mu.Lock()
		defer mu.Unlock()
		if cached.Valid() || path == "" {
			return cached
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("google credentials unreadable", "path", path, "error", err)
			return ocr.CredentialCache{}
		}
		creds, err := google.CredentialsFromJSON(context.Background(), data,
			"https://www.googleapis.com/auth/cloud-platform",
			"https://www.googleapis.com/auth/drive.file")
		if err != nil {
			logger.Warn("google credentials invalid", "error", err)
			return ocr.CredentialCache{}
		}
		tok, err := creds.TokenSource.Token()
		if err != nil {
			logger.Warn("google token mint failed", "error", err)
			return ocr.CredentialCache{}
		}

		cached = ocr.CredentialCache{Token: tok.AccessToken, ExpiresAt: tok.Expiry}
		return cached
	}
}

func cleanupRateLimiters() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		total, active := metrics.get()
		logger.Info("stats", "active", active, "total", total,
			"goroutines", runtime.NumGoroutine(), "memMB", m.Alloc/(1<<20))

		limiters = &sync.Map{}
	}
}

// ---------- Handlers ----------

type extractRequest struct {
	PresignedURL string `json:"presignedUrl"`
	StoragePath  string `json:"storagePath"`
	FileName     string `json:"fileName"`
	DocumentID   string `json:"documentId"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	_, active := metrics.get()
	code := http.StatusOK
	state := "healthy"
	if active >= cfg.MaxConcurrentRequests {
		state = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     state,
		"active":     active,
		"extractors": extractReg.Names(),
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	total, active := metrics.get()

	writeJSON(w, http.StatusOK, map[string]any{
		"activeRequests": active,
		"totalRequests":  total,
		"goroutines":     runtime.NumGoroutine(),
		"memAllocMB":     m.Alloc / (1 << 20),
		"memSysMB":       m.Sys / (1 << 20),
	})
}

func handleExtract(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[extractRequest](r, cfg.MaxJSONBodyBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.ExtractTimeout)
	defer cancel()

	signedURL := strings.TrimSpace(req.PresignedURL)
	if signedURL == "" && req.StoragePath != "" && objects != nil {
		signedURL, err = objects.SignedURL(ctx, req.StoragePath, 15*time.Minute)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "storage", sanitizeError(err))
			return
		}
	}
	if signedURL == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "presignedUrl or storagePath required")
		return
	}

	statusSink.SetStatus(ctx, req.DocumentID, "processing", status.Fields{})

	dl, job, err := extractRt.Prepare(ctx, signedURL, req.FileName)
	if err != nil {
		statusSink.SetStatus(ctx, req.DocumentID, "failed", status.Fields{Error: sanitizeError(err)})
		writeErr(w, http.StatusBadRequest, "download_failed", sanitizeError(err))
		return
	}
	defer dl.Cleanup()

	logger.Info("document staged", "documentId", req.DocumentID,
		"mimeType", dl.MIMEType, "size", dl.Size, "sizeClass", dl.Class)

	res, err := orch.ExtractDocument(ctx, pipeline.Source{
		LocalPath: job.LocalPath,
		SignedURL: signedURL,
		FileName:  job.FileName,
		MIMEType:  job.MIMEType,
		Size:      job.FileSize,
	}, func(p pipeline.Progress) {
		logger.Debug("progress", "documentId", req.DocumentID,
			"percent", p.Percent, "message", p.Message)
	})
	if err != nil {
		statusSink.SetStatus(ctx, req.DocumentID, "failed", status.Fields{Error: sanitizeError(err)})
		writeErr(w, http.StatusBadRequest, "extraction_failed", sanitizeError(err))
		return
	}

	final := "complete"
	if res.NeedsManualIntervention {
		final = "needs_review"
	}
	statusSink.SetStatus(ctx, req.DocumentID, final, status.Fields{
		ExtractedText: res.FullText,
		PageCount:     res.PageCount,
	})

	writeJSON(w, http.StatusOK, res)
}

// ---------- Middleware ----------

func withMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method must be "+method)
			return
		}
		next(w, r)
	}
}

func withInternalAuth(next http.HandlerFunc) http.HandlerFunc {
	shared := cfg.InternalSharedSecret
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Internal-Auth")
		if subtle.ConstantTimeCompare([]byte(got), []byte(shared)) != 1 {
			writeErr(w, http.StatusUnauthorized, "unauthorized", "Invalid authentication")
			return
		}
		next(w, r)
	}
}

func withConcurrencyLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requestSem.Acquire(r.Context(), 1); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "capacity", "Service at capacity")
			return
		}
		defer requestSem.Release(1)

		metrics.incActive()
		defer metrics.decActive()

		next(w, r)
	}
}

func withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		limiter := getRateLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeErr(w, http.StatusTooManyRequests, "rate_limit", "Rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "error", fmt.Sprint(err))
				writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		logger.Info("request", "method", r.Method,
			"path", sanitizeLogString(r.URL.Path),
			"status", ww.status, "duration", time.Since(start))
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ---------- Helpers ----------

func getRateLimiter(ip string) *rate.Limiter {
	if v, ok := limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Every(cfg.RateLimitEvery), cfg.RateLimitBurst)
	limiters.Store(ip, limiter)
	return limiter
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.ReplaceAll(msg, os.TempDir(), "[tmp]")
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func parseJSON[T any](r *http.Request, limit int64) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, err
	}

	// Ensure there's nothing else after the first JSON value
	if err := dec.Decode(new(any)); err != io.EOF {
		if err == nil {
			return out, fmt.Errorf("unexpected trailing data")
		}
		return out, err
	}

	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
