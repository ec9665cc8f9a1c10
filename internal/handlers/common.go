package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/models"
	"github.com/lehigh-university-libraries/captioner/internal/storage"
)

// ModelSource hands out the shared caption model, creating it on first use
type ModelSource interface {
	Get(ctx context.Context) (captioning.Model, error)
}

type Handler struct {
	runStore *storage.RunStore
	models   ModelSource
	fetcher  *images.Fetcher
	runner   *captioning.Runner

	provider string
	model    string

	// one batch at a time; the model is never called concurrently
	mu sync.Mutex
}

func New(store *storage.RunStore, source ModelSource, provider, model string) *Handler {
	h := &Handler{
		runStore: store,
		models:   source,
		fetcher:  images.NewFetcher(),
		provider: provider,
		model:    model,
	}
	h.runner = captioning.NewRunner(captioning.ModelFunc(h.infer))
	return h
}

// Routes mounts the batch API on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.HandleStatus)
	r.Route("/batches", func(r chi.Router) {
		r.Post("/", h.HandleCreateBatch)
		r.Get("/", h.HandleListBatches)
		r.Route("/{batchID}", func(r chi.Router) {
			r.Get("/", h.HandleGetBatch)
			r.Delete("/", h.HandleDeleteBatch)
			r.Get("/archive", h.HandleArchive)
		})
	})
}

func (h *Handler) infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	model, err := h.models.Get(ctx)
	if err != nil {
		return "", err
	}
	return model.Infer(ctx, img, req)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message)
	}
	http.Error(w, message, code)
}

// Run helpers
func (h *Handler) getRunOrError(w http.ResponseWriter, r *http.Request) (*models.CaptionRun, bool) {
	run, exists := h.runStore.Get(chi.URLParam(r, "batchID"))
	if !exists {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}
