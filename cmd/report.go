package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/captioner/internal/manifest"
	"github.com/lehigh-university-libraries/captioner/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <manifest.parquet | run.yaml>",
		Short: "Summarize a caption manifest or run report",
		Long: `Reads a parquet manifest written by "captioner caption --manifest", or a
YAML run report written by "captioner caption --report", and prints the
outcome of every image.`,
		Example: `  # Text summary
  captioner report captions.parquet

  # Same summary from a YAML run report
  captioner report run.yaml

  # CSV for spreadsheets
  captioner report captions.parquet --format csv > captions.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := loadRows(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				return printTextReport(out, rows)
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			case "csv":
				return printCSVReport(out, rows)
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, or csv")

	return cmd
}

// loadRows reads a YAML run report or a parquet manifest, chosen by extension
func loadRows(path string) ([]manifest.Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		run, err := report.LoadYAML(path)
		if err != nil {
			return nil, err
		}
		return rowsFromReport(run), nil
	default:
		return manifest.Load(path)
	}
}

func rowsFromReport(run *report.RunReport) []manifest.Row {
	rows := make([]manifest.Row, 0, len(run.Results))
	for _, item := range run.Results {
		rows = append(rows, manifest.Row{
			Name:      item.Name,
			Caption:   item.Caption,
			Raw:       item.Raw,
			OK:        item.OK,
			ErrorKind: item.ErrorKind,
			Error:     item.Error,
			Mode:      run.Config.Mode,
			Length:    run.Config.Length,
			Trigger:   run.Config.Trigger,
		})
	}
	return rows
}

func printTextReport(w io.Writer, rows []manifest.Row) error {
	succeeded := 0
	for _, row := range rows {
		if row.OK {
			succeeded++
		}
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Caption Run Report")
	fmt.Fprintln(w, "========================================")
	if len(rows) > 0 {
		fmt.Fprintf(w, "Mode:    %s\n", rows[0].Mode)
		fmt.Fprintf(w, "Length:  %s\n", rows[0].Length)
		fmt.Fprintf(w, "Trigger: %s\n", rows[0].Trigger)
	}
	fmt.Fprintf(w, "%d succeeded / %d failed\n", succeeded, len(rows)-succeeded)

	for i, row := range rows {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, row.Name)
		if !row.OK {
			fmt.Fprintf(w, "  Error (%s): %s\n", row.ErrorKind, row.Error)
			continue
		}
		fmt.Fprintf(w, "  Caption: %s\n", row.Caption)
	}
	return nil
}

func printCSVReport(w io.Writer, rows []manifest.Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"name", "ok", "caption", "error_kind", "error"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Name, strconv.FormatBool(row.OK), row.Caption, row.ErrorKind, row.Error}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
