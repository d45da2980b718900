package main

import (
	"fmt"
	"os"

	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/drive"
	"github.com/andresuchdata/retailbill/backend-go/internal/importer"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/andresuchdata/retailbill/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

func productsCommand(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{Name: "file", Usage: "Import a single CSV or XLSX sheet"},
		&cli.StringFlag{Name: "dir", Usage: "Import every sheet in a directory", EnvVars: []string{"PRODUCTS_DIR"}},
		&cli.StringFlag{Name: "prefix", Usage: "Import every sheet under an object storage prefix"},
		&cli.StringFlag{Name: "object", Usage: "Import one object, relative to --prefix"},
		&cli.StringFlag{Name: "drive-folder", Usage: "Import every sheet in a Google Drive folder", Value: cfg.Drive.FolderID},
		&cli.BoolFlag{Name: "from-drive", Usage: "Use --drive-folder as the source"},
		&cli.StringFlag{
			Name:  "download-dir",
			Usage: "Stage remote sheets locally and parse them in parallel",
			Value: cfg.App.UploadDir,
		},
		&cli.IntFlag{Name: "workers", Usage: "Parallel sheet parsers", Value: 4},
	}

	return &cli.Command{
		Name:   "products",
		Usage:  "Load products from sheets on disk, object storage or Google Drive",
		Flags:  append(flags, storageFlags(cfg)...),
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			return runProducts(c, cfg)
		},
	}
}

func runProducts(c *cli.Context, cfg *config.Config) error {
	ctx := c.Context
	db := dbFrom(c)
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	imp := importer.New(service.NewProductService(postgres.NewProductRepository(db), nil))
	workers := c.Int("workers")

	var (
		n   int
		err error
	)
	switch {
	case c.String("file") != "":
		n, err = imp.ImportFile(ctx, c.String("file"))
	case c.String("dir") != "":
		n, err = imp.ImportDir(ctx, c.String("dir"), workers)
	case c.Bool("from-drive"):
		n, err = importFromDrive(c, cfg, imp)
	case c.IsSet("prefix") || c.IsSet("object"):
		n, err = importFromStorage(c, imp)
	default:
		return fmt.Errorf("one of --file, --dir, --prefix, --object or --from-drive is required")
	}
	if err != nil {
		return err
	}

	logger.Log.Info().Int("products", n).Msg("products imported")
	return nil
}

func importFromStorage(c *cli.Context, imp *importer.Importer) (int, error) {
	client, err := newObjectStorage(c)
	if err != nil {
		return 0, err
	}

	prefix, object := c.String("prefix"), c.String("object")
	if object != "" && !c.IsSet("download-dir") {
		return imp.ImportObject(c.Context, client, resolveObjectKey(prefix, object))
	}
	if !c.IsSet("download-dir") {
		return imp.ImportObjects(c.Context, client, prefix)
	}

	paths, err := downloadSheets(c.Context, client, prefix, object, c.String("download-dir"))
	if err != nil {
		return 0, err
	}
	return imp.ImportFiles(c.Context, paths, c.Int("workers"))
}

func importFromDrive(c *cli.Context, cfg *config.Config, imp *importer.Importer) (int, error) {
	svc, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
	if err != nil {
		return 0, err
	}

	dir, err := os.MkdirTemp(c.String("download-dir"), "drive-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	paths, err := drive.NewDownloader(svc).DownloadSheets(c.Context, drive.DownloadOptions{
		FolderID:    c.String("drive-folder"),
		DownloadDir: dir,
		Concurrency: c.Int("workers"),
	})
	if err != nil {
		return 0, err
	}
	return imp.ImportFiles(c.Context, paths, c.Int("workers"))
}
