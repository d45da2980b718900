package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/retailbill/backend-go/internal/importer"
	"golang.org/x/sync/errgroup"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	// Concurrency bounds parallel downloads; 0 means 4.
	Concurrency int
}

// Downloader wraps a Source to download files from a specific folder.
type Downloader struct {
	source Source
}

// NewDownloader creates a new Downloader.
func NewDownloader(s Source) *Downloader {
	return &Downloader{source: s}
}

// DownloadSheets downloads all CSV and XLSX files from the given Drive folder
// into DownloadDir and returns the local paths.
func (d *Downloader) DownloadSheets(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var sheets []*File
	for _, f := range files {
		if importer.IsSheet(f.Name) {
			sheets = append(sheets, f)
		}
	}

	localPaths := make([]string, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range sheets {
		i, f := i, f
		g.Go(func() error {
			localPath := filepath.Join(opts.DownloadDir, filepath.Base(f.Name))
			if err := d.downloadTo(gctx, f, localPath); err != nil {
				return err
			}
			localPaths[i] = localPath
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return localPaths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	if err := d.source.DownloadFile(ctx, f.ID, out); err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return nil
}
