package extract

import (
	"strings"
	"testing"

	"github.com/toricodesthings/document-intelligence-service/internal/chunk"
)

func TestCheckFetchURLRejectsNonHTTPS(t *testing.T) {
	if err := checkFetchURL("http://example.com/file.pdf"); err == nil {
		t.Fatalf("expected non-https URL to be rejected")
	}
}

func TestCheckFetchURLRejectsLocalAndPrivateHosts(t *testing.T) {
	cases := []string{
		"https://localhost/file.pdf",
		"https://127.0.0.1/file.pdf",
		"https://10.0.0.5/file.pdf",
		"https://192.168.1.5/file.pdf",
	}

	for _, c := range cases {
		if err := checkFetchURL(c); err == nil {
			t.Fatalf("expected URL %q to be rejected", c)
		}
	}
}

func TestCheckFetchURLAllowsPublicHTTPS(t *testing.T) {
	if err := checkFetchURL("https://example.com/file.pdf"); err != nil {
		t.Fatalf("expected public https URL to be allowed, got %v", err)
	}
}

func TestCheckFetchURLAllowsPrivateLocalWhenEnabled(t *testing.T) {
	t.Setenv("ALLOW_PRIVATE_DOWNLOAD_URLS", "1")

	cases := []string{
		"http://localhost/file.pdf",
		"http://127.0.0.1/file.pdf",
		"https://10.0.0.5/file.pdf",
	}
	for _, c := range cases {
		if err := checkFetchURL(c); err != nil {
			t.Fatalf("expected URL %q to be allowed with private flag, got %v", c, err)
		}
	}
}

func TestCheckFetchURLRejectsPublicHTTPWhenEnabled(t *testing.T) {
	t.Setenv("ALLOW_PRIVATE_DOWNLOAD_URLS", "1")

	if err := checkFetchURL("http://example.com/file.pdf"); err == nil {
		t.Fatalf("expected public http URL to remain rejected")
	}
}

func TestStageToTempSniffsAndClassifies(t *testing.T) {
	t.Parallel()

	dl, err := stageToTemp(strings.NewReader("%PDF-1.4\nsome body"), "doc.pdf", 1<<20)
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}
	defer dl.Cleanup()

	if dl.MIMEType != "application/pdf" {
		t.Fatalf("expected sniffed pdf type, got %q", dl.MIMEType)
	}
	if dl.Size != int64(len("%PDF-1.4\nsome body")) {
		t.Fatalf("unexpected size %d", dl.Size)
	}
	if dl.Class != chunk.Small {
		t.Fatalf("expected small class, got %q", dl.Class)
	}
}

func TestStageToTempRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	if _, err := stageToTemp(strings.NewReader(strings.Repeat("x", 100)), "big.bin", 10); err == nil {
		t.Fatalf("expected byte-cap rejection")
	}
}

func TestStageToTempStripsPathComponents(t *testing.T) {
	t.Parallel()

	dl, err := stageToTemp(strings.NewReader("plain words here"), "../../etc/passwd", 1<<20)
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}
	defer dl.Cleanup()

	if strings.Contains(dl.Path, "..") || !strings.HasSuffix(dl.Path, "passwd") {
		t.Fatalf("path not contained in staging dir: %q", dl.Path)
	}
}
