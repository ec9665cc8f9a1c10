package models

import (
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
)

// CaptionRun represents a captioned batch held until its archive is collected
type CaptionRun struct {
	ID        string             `json:"id"`
	Mode      string             `json:"mode"`
	Length    string             `json:"length"`
	Trigger   string             `json:"trigger,omitempty"`
	Provider  string             `json:"provider,omitempty"`
	Model     string             `json:"model,omitempty"`
	Summary   captioning.Summary `json:"summary"`
	Items     []ItemResult       `json:"items"`
	CreatedAt time.Time          `json:"created_at"`

	Results []captioning.CaptionResult `json:"-"`
}

// ItemResult represents the outcome for one uploaded image
type ItemResult struct {
	Name        string `json:"name"`
	OK          bool   `json:"ok"`
	Caption     string `json:"caption,omitempty"`
	Raw         string `json:"raw,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"` // "ImageDecodeError", "ModelInvocationError"
	Error       string `json:"error,omitempty"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`
}

// NewCaptionRun captures the results of a batch in submission order
func NewCaptionRun(opts captioning.GenerationOptions, provider, model string, results []captioning.CaptionResult) *CaptionRun {
	run := &CaptionRun{
		Mode:      opts.Mode.String(),
		Length:    opts.Length.String(),
		Trigger:   opts.TriggerToken(),
		Provider:  provider,
		Model:     model,
		Summary:   captioning.Summarize(results),
		Items:     make([]ItemResult, 0, len(results)),
		CreatedAt: time.Now(),
		Results:   results,
	}

	for _, r := range results {
		item := ItemResult{
			Name:      r.Name(),
			OK:        r.OK,
			Caption:   r.Caption,
			Raw:       r.Raw,
			ErrorKind: r.ErrorKind(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if r.Item != nil {
			item.ImageWidth = r.Item.Width
			item.ImageHeight = r.Item.Height
		}
		run.Items = append(run.Items, item)
	}

	return run
}
