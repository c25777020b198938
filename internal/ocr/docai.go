package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/toricodesthings/document-intelligence-service/internal/pages"
)

const (
	// docaiMaxChunkBytes stays under the per-call payload ceiling of the
	// synchronous ProcessDocument API.
	docaiMaxChunkBytes = 15 << 20
	docaiChunkOverlap  = 64 << 10
	docaiWorkers       = 4
)

// CredentialSource yields the caller-owned token for Google clients.
type CredentialSource func() CredentialCache

type DocAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string

	// MaxChunkBytes and Workers default to the package constants.
	MaxChunkBytes int
	Workers       int
}

func (c DocAIConfig) configured() bool {
	return c.ProjectID != "" && c.Location != "" && c.ProcessorID != ""
}

// docProcessor is the slice of the Document AI client the provider uses,
// separated so tests can stand in for the real service.
type docProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocAIProvider sends document bytes to Google Document AI. Files above
// the per-call ceiling are split into overlapping byte chunks, processed
// by a bounded worker pool, reassembled in chunk order, and sentence-
// deduplicated to remove overlap artifacts.
type DocAIProvider struct {
	cfg     DocAIConfig
	creds   CredentialSource
	limiter *Limiter
	logger  *slog.Logger

	newClient func(ctx context.Context) (docProcessor, error)
}

func NewDocAI(cfg DocAIConfig, creds CredentialSource, limiter *Limiter, logger *slog.Logger) *DocAIProvider {
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = docaiMaxChunkBytes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = docaiWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &DocAIProvider{cfg: cfg, creds: creds, limiter: limiter, logger: logger}
	p.newClient = p.dialClient
	return p
}

func (p *DocAIProvider) Name() string { return "document-ai" }

func (p *DocAIProvider) dialClient(ctx context.Context) (docProcessor, error) {
	cache := p.creds()
	if !cache.Valid() {
		return nil, fmt.Errorf("document AI credentials missing or expired")
	}
	return documentai.NewDocumentProcessorClient(ctx,
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", p.cfg.Location)),
		option.WithTokenSource(cache.TokenSource()),
	)
}

func (p *DocAIProvider) TryExtract(ctx context.Context, req Request) (string, error) {
	if !p.cfg.configured() {
		return "", fmt.Errorf("document AI not configured")
	}

	data, err := os.ReadFile(req.LocalPath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	mime := req.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}

	if len(data) <= p.cfg.MaxChunkBytes {
		return p.processOne(ctx, client, data, mime)
	}
	return p.processChunked(ctx, client, data, mime)
}

func (p *DocAIProvider) processOne(ctx context.Context, client docProcessor, data []byte, mime string) (string, error) {
	return p.limiter.Do(ctx, func() (string, error) {
		resp, err := client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
			Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
				p.cfg.ProjectID, p.cfg.Location, p.cfg.ProcessorID),
			Source: &documentaipb.ProcessRequest_RawDocument{
				RawDocument: &documentaipb.RawDocument{
					Content:  data,
					MimeType: mime,
				},
			},
		})
		if err != nil {
			return "", fmt.Errorf("document AI process: %w", err)
		}
		return resp.GetDocument().GetText(), nil
	})
}

// processChunked OCRs overlapping byte ranges in parallel. Results are
// written into an index-addressed slice so reassembly follows source
// order regardless of completion order; the chunk overlap then shows up
// as repeated sentences, which the shared dedup removes.
func (p *DocAIProvider) processChunked(ctx context.Context, client docProcessor, data []byte, mime string) (string, error) {
	overlap := docaiChunkOverlap
	if overlap >= p.cfg.MaxChunkBytes {
		overlap = p.cfg.MaxChunkBytes / 10
	}
	stride := p.cfg.MaxChunkBytes - overlap
	var ranges [][2]int
	for start := 0; start < len(data); start += stride {
		end := start + p.cfg.MaxChunkBytes
		if end > len(data) {
			end = len(data)
		}
		ranges = append(ranges, [2]int{start, end})
		if end == len(data) {
			break
		}
	}

	texts := make([]string, len(ranges))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, r := range ranges {
		g.Go(func() error {
			text, err := p.processOne(gctx, client, data[r[0]:r[1]], mime)
			if err != nil {
				// A failed chunk costs its text, not the document.
				p.logger.Warn("document AI chunk failed", "chunk", i, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if failed == len(ranges) {
		return "", fmt.Errorf("document AI: all %d chunks failed", len(ranges))
	}

	var nonEmpty []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return pages.DedupSentences(strings.Join(nonEmpty, "\n")), nil
}
