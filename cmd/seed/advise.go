package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retailbill/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

func adviseCommand(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{Name: "out", Usage: "Write the reorder report to this file instead of stdout"},
		&cli.StringFlag{Name: "upload", Usage: "Also upload the report under this object key (relative to --prefix)"},
		&cli.StringFlag{Name: "prefix", Usage: "Object storage prefix for uploaded reports", Value: "reports"},
	}

	return &cli.Command{
		Name:   "advise",
		Usage:  "Write the reorder report for the current stock levels",
		Flags:  append(flags, storageFlags(cfg)...),
		Before: initDB,
		After:  closeDB,
		Action: runAdvise,
	}
}

func runAdvise(c *cli.Context) error {
	products, err := postgres.NewProductRepository(dbFrom(c)).ListProducts(c.Context)
	if err != nil {
		return err
	}

	analysis := advisor.NewEngine().Analyze(products)
	logger.Log.Info().
		Int("products", analysis.Summary.TotalProducts).
		Int("critical", analysis.Summary.CriticalItems).
		Int("alerts", analysis.Summary.AlertsGenerated).
		Msg("stock analysed")

	var buf bytes.Buffer
	if err := advisor.WriteCSV(&buf, analysis.Alerts); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := writeReport(c.String("out"), buf.Bytes()); err != nil {
		return err
	}

	if !c.IsSet("upload") {
		return nil
	}
	client, err := newObjectStorage(c)
	if err != nil {
		return err
	}
	key := resolveObjectKey(c.String("prefix"), reportName(c.String("upload"), time.Now()))
	if err := client.UploadObject(c.Context, key, buf.Bytes()); err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Msg("report uploaded")
	return nil
}

func writeReport(path string, data []byte) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(data)
	return err
}

// reportName defaults to a dated file name when --upload is given without a value.
func reportName(name string, now time.Time) string {
	if name != "" {
		return name
	}
	return "reorder-" + now.Format("2006-01-02") + ".csv"
}
