package drive

import (
	"context"
	"fmt"
	"io"

	"github.com/andresuchdata/retailbill/backend-go/internal/importer"
	"github.com/rs/zerolog/log"
)

// IngestService imports product sheets straight from Drive without touching disk.
type IngestService struct {
	source   Source
	importer *importer.Importer
}

func NewIngestService(source Source, imp *importer.Importer) *IngestService {
	return &IngestService{
		source:   source,
		importer: imp,
	}
}

func (s *IngestService) IngestFile(ctx context.Context, fileID string) (int, error) {
	file, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if !importer.IsSheet(file.Name) {
		return 0, fmt.Errorf("%s: %w", file.Name, importer.ErrUnsupportedFormat)
	}

	pr, pw := io.Pipe()
	go func() {
		err := s.source.DownloadFile(ctx, fileID, pw)
		pw.CloseWithError(err)
	}()
	defer pr.Close()

	return s.importer.ImportReader(ctx, file.Name, pr)
}

// IngestFolder imports every sheet in the folder. A failing file is logged and
// skipped so one bad sheet does not block the rest.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) (int, []string, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return 0, nil, err
	}

	total := 0
	failed := make([]string, 0)
	for _, f := range files {
		if !importer.IsSheet(f.Name) {
			continue
		}
		n, err := s.IngestFile(ctx, f.ID)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("drive ingest: skipping file")
			failed = append(failed, f.Name)
			continue
		}
		total += n
	}
	return total, failed, nil
}
