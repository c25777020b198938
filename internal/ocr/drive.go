package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// driveMaxExportBytes bounds the exported plain-text body.
const driveMaxExportBytes = int64(50 << 20)

// driveService is the slice of the Drive API the provider uses.
type driveService interface {
	Upload(ctx context.Context, name, mimeType string, body io.Reader) (id string, err error)
	ConvertToDoc(ctx context.Context, fileID, name string) (id string, err error)
	ExportText(ctx context.Context, fileID string) (string, error)
	Delete(ctx context.Context, fileID string) error
}

// DriveProvider round-trips the document through a Drive-style store:
// upload the raw binary, copy-convert it to a Google Doc (which runs
// server-side OCR), export the doc as plain text, and delete both remote
// objects. Deletion of everything created is guaranteed on every exit
// path, success or failure.
type DriveProvider struct {
	creds  CredentialSource
	logger *slog.Logger

	newService func(ctx context.Context) (driveService, error)
}

func NewDrive(creds CredentialSource, logger *slog.Logger) *DriveProvider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &DriveProvider{creds: creds, logger: logger}
	p.newService = p.dialService
	return p
}

func (p *DriveProvider) Name() string { return "drive-convert" }

func (p *DriveProvider) dialService(ctx context.Context) (driveService, error) {
	cache := p.creds()
	if !cache.Valid() {
		return nil, fmt.Errorf("drive credentials missing or expired")
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(cache.TokenSource()))
	if err != nil {
		return nil, err
	}
	return &realDriveService{svc: svc}, nil
}

func (p *DriveProvider) TryExtract(ctx context.Context, req Request) (string, error) {
	svc, err := p.newService(ctx)
	if err != nil {
		return "", err
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	uploadID, err := svc.Upload(ctx, req.FileName, req.MIMEType, f)
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	defer p.deleteQuietly(svc, uploadID)

	docID, err := svc.ConvertToDoc(ctx, uploadID, req.FileName)
	if err != nil {
		return "", fmt.Errorf("drive convert: %w", err)
	}
	defer p.deleteQuietly(svc, docID)

	text, err := svc.ExportText(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("drive export: %w", err)
	}
	return text, nil
}

// deleteQuietly uses a fresh context: cleanup must still run when the
// request context is already canceled.
func (p *DriveProvider) deleteQuietly(svc driveService, fileID string) {
	if fileID == "" {
		return
	}
	if err := svc.Delete(context.Background(), fileID); err != nil {
		p.logger.Warn("drive cleanup failed", "fileId", fileID, "error", err)
	}
}

type realDriveService struct {
	svc *drive.Service
}

func (r *realDriveService) Upload(ctx context.Context, name, mimeType string, body io.Reader) (string, error) {
	created, err := r.svc.Files.Create(&drive.File{Name: name}).
		Media(body, googleapi.ContentType(mimeType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (r *realDriveService) ConvertToDoc(ctx context.Context, fileID, name string) (string, error) {
	copied, err := r.svc.Files.Copy(fileID, &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
	}).OcrLanguage("en").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return copied.Id, nil
}

func (r *realDriveService) ExportText(ctx context.Context, fileID string) (string, error) {
	resp, err := r.svc.Files.Export(fileID, "text/plain").Context(ctx).Download()
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, driveMaxExportBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *realDriveService) Delete(ctx context.Context, fileID string) error {
	return r.svc.Files.Delete(fileID).Context(ctx).Do()
}
