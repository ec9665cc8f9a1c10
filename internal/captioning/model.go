package captioning

import (
	"context"

	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// Model captions a single decoded image. Implementations must not mutate
// shared state during inference; callers never invoke a Model concurrently.
type Model interface {
	Infer(ctx context.Context, img *images.Decoded, req Request) (string, error)
}

// ModelFunc adapts a plain function to the Model interface
type ModelFunc func(ctx context.Context, img *images.Decoded, req Request) (string, error)

func (f ModelFunc) Infer(ctx context.Context, img *images.Decoded, req Request) (string, error) {
	return f(ctx, img, req)
}
