package captioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// Progress is reported after each item finishes
type Progress struct {
	Index int // 1-based
	Total int
	Name  string
	OK    bool
}

// Runner captions batches one image at a time against a single model
type Runner struct {
	model Model

	// OnProgress, if set, is called after every item. It is advisory and
	// cannot change the results.
	OnProgress func(Progress)

	busy atomic.Bool
}

// NewRunner returns a runner bound to model
func NewRunner(model Model) *Runner {
	return &Runner{model: model}
}

// Busy reports whether a batch is currently being processed
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Run captions every item of the batch in order. Batch-level precondition
// failures are returned as errors and no model call is made. Per-item
// failures are recorded on the corresponding result and processing
// continues. The returned slice has one result per item, in batch order.
func (r *Runner) Run(ctx context.Context, batch *Batch, opts GenerationOptions) ([]CaptionResult, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	req := Compose(opts)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	r.busy.Store(true)
	defer r.busy.Store(false)

	total := batch.Len()
	slog.Info("Starting caption batch", "images", total, "mode", opts.Mode, "length", opts.Length, "trigger", opts.TriggerToken())

	results := make([]CaptionResult, 0, total)
	for i, item := range batch.Items {
		result := r.captionItem(ctx, item, req, opts)
		results = append(results, result)

		if result.OK {
			slog.Info("Captioned image", "name", item.Name, "progress", fmt.Sprintf("%d/%d", i+1, total))
		} else {
			slog.Warn("Failed to caption image", "name", item.Name, "progress", fmt.Sprintf("%d/%d", i+1, total), "err", result.Err)
		}

		r.notify(Progress{Index: i + 1, Total: total, Name: item.Name, OK: result.OK})
	}

	summary := Summarize(results)
	slog.Info("Caption batch finished", "succeeded", summary.Succeeded, "failed", summary.Failed)
	return results, nil
}

func (r *Runner) captionItem(ctx context.Context, item *ImageItem, req Request, opts GenerationOptions) CaptionResult {
	result := CaptionResult{Item: item}

	decoded, err := images.Decode(item.Data)
	if err != nil {
		item.Status = StatusFailed
		result.Err = &ItemError{Name: item.Name, Kind: ErrImageDecode, Err: err}
		return result
	}
	item.Status = StatusDecoded
	item.Format = decoded.Format
	item.Width = decoded.Width()
	item.Height = decoded.Height()

	raw, err := r.model.Infer(ctx, decoded, req)
	if err != nil {
		result.Err = &ItemError{Name: item.Name, Kind: ErrModelInvocation, Err: err}
		return result
	}
	result.Raw = raw

	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		result.Err = &ItemError{Name: item.Name, Kind: ErrModelInvocation, Err: errors.New("model returned an empty caption")}
		return result
	}

	result.Caption = Finalize(cleaned, opts)
	result.OK = true
	return result
}

func (r *Runner) notify(p Progress) {
	if r.OnProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("Progress callback panicked", "name", p.Name, "panic", rec)
		}
	}()
	r.OnProgress(p)
}
