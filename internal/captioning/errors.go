package captioning

import (
	"errors"
	"fmt"
)

// Batch-level errors, returned before any model invocation
var (
	ErrEmptyBatch    = errors.New("batch is empty")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	ErrDuplicateItem = errors.New("duplicate image name in batch")
)

// Item-level error kinds, recorded on the failing CaptionResult
var (
	ErrImageDecode     = errors.New("image decode failed")
	ErrModelInvocation = errors.New("model invocation failed")
)

// ItemError describes why a single image in a batch produced no caption.
type ItemError struct {
	Name string
	Kind error // ErrImageDecode or ErrModelInvocation
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Name, e.Kind, e.Err)
}

func (e *ItemError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName is the stable label used in reports
func (e *ItemError) KindName() string {
	switch e.Kind {
	case ErrImageDecode:
		return "ImageDecodeError"
	case ErrModelInvocation:
		return "ModelInvocationError"
	default:
		return "UnknownError"
	}
}
