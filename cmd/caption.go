package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/captioner/internal/archive"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/config"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/inputs"
	"github.com/lehigh-university-libraries/captioner/internal/manifest"
	"github.com/lehigh-university-libraries/captioner/internal/providers"
	"github.com/lehigh-university-libraries/captioner/internal/report"
	"github.com/spf13/cobra"
)

var errNothingToPackage = errors.New("no successful captions to package")

func newCaptionCmd() *cobra.Command {
	var (
		provider     string
		model        string
		mode         string
		length       string
		trigger      string
		output       string
		reportPath   string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "caption [files, directories, or URLs...]",
		Short: "Caption a batch of images and package them as a zip",
		Long: fmt.Sprintf(`Captions up to %d images in one run and writes a zip archive containing
images/<name> and captions/<name>.txt for every image that was captioned.

Images that cannot be decoded or captioned are reported and left out of the
archive; the rest of the batch still runs.`, captioning.MaxBatchSize),
		Example: `  # Caption a folder with the default provider
  captioner caption ./photos

  # Short captions with a trigger token for LoRA training
  captioner caption ./photos --length short --trigger studioX -o studiox.zip

  # Appearance-focused captions from OpenAI with a YAML report
  captioner caption a.png b.jpg --provider openai --mode appearance --report run.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if provider == "" {
				provider = cfg.Provider
			}

			opts, err := captioning.NewOptions(mode, length, trigger)
			if err != nil {
				return err
			}

			uploads, err := inputs.Collect(ctx, images.NewFetcher(), args)
			if err != nil {
				return err
			}

			batch := captioning.NewBatch(uploads)
			if err := batch.Validate(); err != nil {
				return err
			}

			handle := providers.NewHandle(func(ctx context.Context) (providers.Provider, error) {
				return providers.New(ctx, cfg, provider, model)
			})
			defer handle.Close()

			m, err := handle.Get(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			runner := captioning.NewRunner(m)
			runner.OnProgress = func(p captioning.Progress) {
				status := "ok"
				if !p.OK {
					status = "failed"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: %s\n", p.Index, p.Total, p.Name, status)
			}

			results, err := runner.Run(ctx, batch, opts)
			if err != nil {
				return err
			}

			summary := captioning.Summarize(results)
			printSummary(out, summary)

			if reportPath != "" {
				if err := report.SaveYAML(reportPath, report.New(provider, model, opts, results)); err != nil {
					return err
				}
				fmt.Fprintf(out, "Report written to %s\n", reportPath)
			}
			if manifestPath != "" {
				if err := manifest.Write(manifestPath, manifest.Rows(opts, results)); err != nil {
					return err
				}
				fmt.Fprintf(out, "Manifest written to %s\n", manifestPath)
			}

			if summary.Succeeded == 0 {
				return errNothingToPackage
			}
			if err := writeArchive(output, results); err != nil {
				return err
			}
			fmt.Fprintf(out, "Archive written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Caption provider: ollama, openai, gemini, or huggingface (default from CAPTION_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default from the provider's environment variable)")
	cmd.Flags().StringVar(&mode, "mode", "simple", "Caption mode: simple, descriptive, or appearance")
	cmd.Flags().StringVar(&length, "length", "medium", "Caption length: short, medium, or long")
	cmd.Flags().StringVar(&trigger, "trigger", "", "Trigger token prefixed to every caption")
	cmd.Flags().StringVarP(&output, "output", "o", archive.DefaultFilename, "Path of the zip archive to write")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this path")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Write a parquet manifest to this path")

	return cmd
}

func printSummary(w io.Writer, summary captioning.Summary) {
	fmt.Fprintln(w, summary.String())
	for _, f := range summary.Failures {
		fmt.Fprintf(w, "  %s: %s (%s)\n", f.Name, f.Kind, f.Message)
	}
}

func writeArchive(path string, results []captioning.CaptionResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := archive.Write(file, results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
