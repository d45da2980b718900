package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProductUpserter is satisfied by service.ProductService.
type ProductUpserter interface {
	UpsertProducts(ctx context.Context, products []domain.Product) (int, error)
}

// Importer loads product sheets from local files or object storage.
type Importer struct {
	products ProductUpserter
}

func New(products ProductUpserter) *Importer {
	return &Importer{products: products}
}

// ImportReader parses one sheet and upserts its rows.
func (i *Importer) ImportReader(ctx context.Context, filename string, r io.Reader) (int, error) {
	products, err := ParseProducts(filename, r)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		log.Warn().Str("file", filename).Msg("product sheet has no rows")
		return 0, nil
	}

	n, err := i.products.UpsertProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("failed to save products from %s: %w", filename, err)
	}
	log.Info().Str("file", filename).Int("products", n).Msg("product sheet imported")
	return n, nil
}

// ImportFile imports a sheet from the local filesystem.
func (i *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return i.ImportReader(ctx, filepath.Base(path), f)
}

// ImportDir imports every CSV/XLSX file directly under dir.
func (i *Importer) ImportDir(ctx context.Context, dir string, workers int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSheet(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return i.ImportFiles(ctx, paths, workers)
}

// ImportFiles parses the sheets with up to workers goroutines, then saves them
// in path order so later files win on duplicate ids.
func (i *Importer) ImportFiles(ctx context.Context, paths []string, workers int) (int, error) {
	if workers <= 0 {
		workers = 4
	}

	parsed := make([][]domain.Product, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, path := range paths {
		idx, path := idx, path
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			if err := gctx.Err(); err != nil {
				return err
			}
			products, err := ParseProducts(filepath.Base(path), f)
			if err != nil {
				return err
			}
			parsed[idx] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for idx, products := range parsed {
		if len(products) == 0 {
			continue
		}
		n, err := i.products.UpsertProducts(ctx, products)
		if err != nil {
			return total, fmt.Errorf("failed to save products from %s: %w", paths[idx], err)
		}
		log.Info().Str("file", paths[idx]).Int("products", n).Msg("product sheet imported")
		total += n
	}
	return total, nil
}

// ImportObjects imports every sheet under prefix in the bucket.
func (i *Importer) ImportObjects(ctx context.Context, store storage.ObjectStorage, prefix string) (int, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, obj := range objects {
		if !IsSheet(obj.Key) {
			continue
		}

		n, err := i.ImportObject(ctx, store, obj.Key)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ImportObject imports a single sheet from the bucket.
func (i *Importer) ImportObject(ctx context.Context, store storage.ObjectStorage, key string) (int, error) {
	rc, err := store.OpenObject(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return i.ImportReader(ctx, filepath.Base(key), rc)
}
