package extract

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/toricodesthings/document-intelligence-service/internal/chunk"
)

// DownloadedFile is the locally staged copy of a document, plus what was
// learned about it on the way down: sniffed MIME type, byte size, and
// the read-strategy class derived from that size.
type DownloadedFile struct {
	dir      string
	Path     string
	MIMEType string
	Size     int64
	Class    chunk.SizeClass
}

// Cleanup removes the staging directory and everything in it.
func (d DownloadedFile) Cleanup() {
	if d.dir != "" {
		_ = os.RemoveAll(d.dir)
	}
}

// fetch pulls the presigned object onto local disk. The byte cap is
// enforced while streaming, so an oversized object never lands whole.
func (r *Router) fetch(ctx context.Context, presignedURL, fileName string) (DownloadedFile, error) {
	if err := checkFetchURL(presignedURL); err != nil {
		return DownloadedFile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return DownloadedFile{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "docintel/1.0")

	client := &http.Client{Timeout: r.downloadTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return DownloadedFile{}, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DownloadedFile{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	dl, err := stageToTemp(resp.Body, fileName, r.maxFileBytes)
	if err != nil {
		return DownloadedFile{}, err
	}
	if dl.MIMEType == "" {
		dl.MIMEType = mimeFromHeader(resp.Header.Get("Content-Type"))
	}
	return dl, nil
}

// stageToTemp streams src into a fresh temp directory, stopping at the
// byte cap, then sniffs the staged bytes. maxBytes <= 0 means uncapped.
func stageToTemp(src io.Reader, fileName string, maxBytes int64) (DownloadedFile, error) {
	dir, err := os.MkdirTemp("", "docintel-*")
	if err != nil {
		return DownloadedFile{}, fmt.Errorf("temp dir: %w", err)
	}
	fail := func(step string, err error) (DownloadedFile, error) {
		_ = os.RemoveAll(dir)
		return DownloadedFile{}, fmt.Errorf("%s: %w", step, err)
	}

	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "input.bin"
	}
	path := filepath.Join(dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return fail("create", err)
	}
	defer f.Close()

	reader := src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	n, err := io.Copy(f, reader)
	if err != nil {
		return fail("write", err)
	}
	if maxBytes > 0 && n > maxBytes {
		_ = os.RemoveAll(dir)
		return DownloadedFile{}, fmt.Errorf("file exceeds %dMB limit", maxBytes/(1<<20))
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}

	return DownloadedFile{
		dir:      dir,
		Path:     path,
		MIMEType: sniffMIMEType(path),
		Size:     n,
		Class:    chunk.Classify(n),
	}, nil
}

// checkFetchURL enforces the outbound-fetch policy: https to public
// hosts only. ALLOW_PRIVATE_DOWNLOAD_URLS=1 opens local and private
// addresses (and plain http to them) for development setups; public
// plain-http stays rejected even then.
func checkFetchURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == nil {
		return fmt.Errorf("invalid download URL")
	}
	host := strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	if host == "" {
		return fmt.Errorf("download URL host is required")
	}

	private := host == "localhost" || strings.HasSuffix(host, ".localhost")
	if ip := net.ParseIP(host); ip != nil && isPrivateOrLocalIP(ip) {
		private = true
	}
	allowPrivate := allowPrivateDownloadURLs()

	switch strings.ToLower(parsed.Scheme) {
	case "https":
	case "http":
		if !(allowPrivate && private) {
			return fmt.Errorf("download URL must use https")
		}
	default:
		return fmt.Errorf("download URL must use https")
	}

	if private && !allowPrivate {
		return fmt.Errorf("download URL host is not allowed")
	}
	return nil
}

func allowPrivateDownloadURLs() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_PRIVATE_DOWNLOAD_URLS")))
	return v == "1" || v == "true" || v == "yes"
}

func isPrivateOrLocalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	// RFC6598 carrier-grade NAT range: 100.64.0.0/10
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
		return true
	}
	return false
}

// sniffMIMEType identifies the staged bytes by content. mimetype knows
// the document formats this service routes on; the net/http sniffer is
// the fallback for anything it cannot name.
func sniffMIMEType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil && m != nil {
		return strings.ToLower(strings.TrimSpace(m.String()))
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(http.DetectContentType(buf[:n])))
}

// mimeFromHeader normalizes a Content-Type header value, dropping any
// parameters.
func mimeFromHeader(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.Index(v, ";"); i > 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}
