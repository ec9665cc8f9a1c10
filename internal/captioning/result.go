package captioning

import (
	"errors"
	"fmt"
)

// CaptionResult is the outcome for one item of a batch
type CaptionResult struct {
	Item    *ImageItem
	Raw     string
	Caption string
	OK      bool
	Err     error
}

// Name returns the source item name
func (r CaptionResult) Name() string {
	if r.Item == nil {
		return ""
	}
	return r.Item.Name
}

// ErrorKind returns the report label of a failed result, empty on success
func (r CaptionResult) ErrorKind() string {
	if r.OK || r.Err == nil {
		return ""
	}
	var itemErr *ItemError
	if errors.As(r.Err, &itemErr) {
		return itemErr.KindName()
	}
	return "UnknownError"
}

// Failure identifies a failed item without re-running the batch
type Failure struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// Summary counts the outcomes of a run
type Summary struct {
	Total     int       `json:"total" yaml:"total"`
	Succeeded int       `json:"succeeded" yaml:"succeeded"`
	Failed    int       `json:"failed" yaml:"failed"`
	Failures  []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded / %d failed", s.Succeeded, s.Failed)
}

// Summarize tallies results in order
func Summarize(results []CaptionResult) Summary {
	summary := Summary{Total: len(results)}
	for _, r := range results {
		if r.OK {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		message := ""
		if r.Err != nil {
			message = r.Err.Error()
		}
		summary.Failures = append(summary.Failures, Failure{
			Name:    r.Name(),
			Kind:    r.ErrorKind(),
			Message: message,
		})
	}
	return summary
}

// Successful returns only the results that produced a caption, in order
func Successful(results []CaptionResult) []CaptionResult {
	ok := make([]CaptionResult, 0, len(results))
	for _, r := range results {
		if r.OK {
			ok = append(ok, r)
		}
	}
	return ok
}
