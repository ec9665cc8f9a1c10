package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"gopkg.in/yaml.v3"
)

// RunConfig records how a caption run was produced
type RunConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model,omitempty"`
	Mode              string  `yaml:"mode"`
	Length            string  `yaml:"length"`
	Trigger           string  `yaml:"trigger,omitempty"`
	Prompt            string  `yaml:"prompt"`
	MaxNewTokens      int     `yaml:"maxnewtokens"`
	NumBeams          int     `yaml:"numbeams"`
	Temperature       float64 `yaml:"temperature"`
	RepetitionPenalty float64 `yaml:"repetitionpenalty"`
	Timestamp         string  `yaml:"timestamp"`
}

// ItemReport is one line of the per-image results
type ItemReport struct {
	Name      string `yaml:"name"`
	OK        bool   `yaml:"ok"`
	Caption   string `yaml:"caption,omitempty"`
	Raw       string `yaml:"raw,omitempty"`
	ErrorKind string `yaml:"errorkind,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

// RunReport is the complete YAML document
type RunReport struct {
	Config  RunConfig          `yaml:"config"`
	Summary captioning.Summary `yaml:"summary"`
	Results []ItemReport       `yaml:"results"`
}

// New builds a report for results produced with opts
func New(provider, model string, opts captioning.GenerationOptions, results []captioning.CaptionResult) *RunReport {
	req := captioning.Compose(opts)

	report := &RunReport{
		Config: RunConfig{
			Provider:          provider,
			Model:             model,
			Mode:              opts.Mode.String(),
			Length:            opts.Length.String(),
			Trigger:           opts.TriggerToken(),
			Prompt:            req.Prompt,
			MaxNewTokens:      req.MaxNewTokens,
			NumBeams:          req.NumBeams,
			Temperature:       req.Temperature,
			RepetitionPenalty: req.RepetitionPenalty,
			Timestamp:         time.Now().Format("2006-01-02_15-04-05"),
		},
		Summary: captioning.Summarize(results),
		Results: make([]ItemReport, 0, len(results)),
	}

	for _, r := range results {
		item := ItemReport{
			Name:      r.Name(),
			OK:        r.OK,
			Caption:   r.Caption,
			Raw:       r.Raw,
			ErrorKind: r.ErrorKind(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		report.Results = append(report.Results, item)
	}

	return report
}

// SaveYAML writes the report to path, creating parent directories
func SaveYAML(path string, report *RunReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	return nil
}

// LoadYAML reads a report written by SaveYAML
func LoadYAML(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}
