// Package manifest writes and reads a parquet index of a caption run, one
// row per submitted image, for loading into dataset tooling.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/captioner/internal/archive"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/parquet-go/parquet-go"
)

// Row describes one image of a run. Paths refer to archive entries and are
// empty for failed images.
type Row struct {
	Name        string `parquet:"name"`
	ImagePath   string `parquet:"image_path"`
	CaptionPath string `parquet:"caption_path"`
	Caption     string `parquet:"caption"`
	Raw         string `parquet:"raw"`
	OK          bool   `parquet:"ok"`
	ErrorKind   string `parquet:"error_kind"`
	Error       string `parquet:"error"`
	Mode        string `parquet:"mode"`
	Length      string `parquet:"length"`
	Trigger     string `parquet:"trigger"`
}

// Rows converts results to manifest rows in result order
func Rows(opts captioning.GenerationOptions, results []captioning.CaptionResult) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		row := Row{
			Name:      r.Name(),
			Caption:   r.Caption,
			Raw:       r.Raw,
			OK:        r.OK,
			ErrorKind: r.ErrorKind(),
			Mode:      opts.Mode.String(),
			Length:    opts.Length.String(),
			Trigger:   opts.TriggerToken(),
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		if r.OK && r.Item != nil {
			row.ImagePath, row.CaptionPath = archive.EntryNames(r.Item)
		}
		rows = append(rows, row)
	}
	return rows
}

// Write stores rows as a parquet file at path
func Write(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write manifest rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close manifest writer: %w", err)
	}

	slog.Debug("Wrote manifest", "path", path, "rows", len(rows))
	return file.Close()
}

// Load reads every row of a manifest file
func Load(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	buf := make([]Row, 128)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read manifest rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return rows, nil
}
