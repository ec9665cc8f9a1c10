package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/captioner/internal/archive"
)

func (h *Handler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.runStore.List())
}

func (h *Handler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	run, ok := h.getRunOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) HandleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	run, ok := h.getRunOrError(w, r)
	if !ok {
		return
	}
	h.runStore.Delete(run.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleArchive streams the zip of a run's successful captions. The run is
// evicted once the archive has been built.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	run, ok := h.getRunOrError(w, r)
	if !ok {
		return
	}
	if run.Summary.Succeeded == 0 {
		h.writeError(w, "No successful captions to package", http.StatusConflict)
		return
	}

	artifact, err := archive.Package(run.Results)
	if err != nil {
		h.writeError(w, "Failed to build archive: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, taken := h.runStore.Take(run.ID); !taken {
		// evicted concurrently by another request
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(artifact.Data)))
	if _, err := w.Write(artifact.Data); err != nil {
		slog.Error("Unable to write archive", "batch_id", run.ID, "err", err)
	}
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"busy":     h.runner.Busy(),
		"provider": h.provider,
		"model":    h.model,
		"batches":  len(h.runStore.List()),
	})
}
