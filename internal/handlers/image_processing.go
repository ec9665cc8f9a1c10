package handlers

import (
	"fmt"
	"net/http"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// fetchUploads downloads each URL in order. Batch limits are checked before
// anything is fetched.
func (h *Handler) fetchUploads(r *http.Request, urls []string) ([]captioning.Upload, error) {
	if len(urls) > captioning.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d images (max %d)", captioning.ErrBatchTooLarge, len(urls), captioning.MaxBatchSize)
	}

	uploads := make([]captioning.Upload, 0, len(urls))
	for _, u := range urls {
		if !images.IsRemote(u) {
			return nil, fmt.Errorf("invalid image URL: %q", u)
		}
		name, data, err := h.fetcher.Fetch(r.Context(), u)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", u, err)
		}
		uploads = append(uploads, captioning.Upload{Name: name, Data: data})
	}
	return uploads, nil
}
