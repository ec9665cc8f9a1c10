package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/metrics"
	"github.com/lehigh-university-libraries/captioner/internal/models"
)

// maxFormMemory bounds the multipart parser's in-memory buffer; larger
// bodies spill to temp files.
const maxFormMemory = 32 << 20

type batchRequest struct {
	ImageURLs []string `json:"image_urls"`
	Mode      string   `json:"mode"`
	Length    string   `json:"length"`
	Trigger   string   `json:"trigger"`
}

// HandleCreateBatch captions a batch of uploaded files or image URLs and
// stores the run until its archive is collected.
func (h *Handler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var (
		req     batchRequest
		uploads []captioning.Upload
		err     error
	)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		uploads, err = h.fetchUploads(r, req.ImageURLs)
	} else {
		req, uploads, err = h.readMultipart(r)
	}
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		h.writeError(w, err.Error(), code)
		return
	}

	opts, err := captioning.NewOptions(req.Mode, req.Length, req.Trigger)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch := captioning.NewBatch(uploads)
	if err := batch.Validate(); err != nil {
		metrics.ObserveBatch("rejected", 0, 0)
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// surface model setup problems before any item is attempted
	if _, err := h.models.Get(r.Context()); err != nil {
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	results, err := h.runner.Run(r.Context(), batch, opts)
	if err != nil {
		metrics.ObserveBatch("rejected", 0, 0)
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	run := models.NewCaptionRun(opts, h.provider, h.model, results)
	id := h.runStore.Add(run)
	metrics.ObserveBatch("completed", run.Summary.Succeeded, run.Summary.Failed)
	slog.Info("Batch captioned", "batch_id", id, "summary", run.Summary.String())

	h.writeJSON(w, http.StatusCreated, run)
}

var errTooLarge = fmt.Errorf("file too large (max %d bytes)", images.MaxImageSize)

func (h *Handler) readMultipart(r *http.Request) (batchRequest, []captioning.Upload, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return batchRequest{}, nil, fmt.Errorf("failed to parse form: %w", err)
	}

	req := batchRequest{
		Mode:    r.FormValue("mode"),
		Length:  r.FormValue("length"),
		Trigger: r.FormValue("trigger"),
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}

	uploads := make([]captioning.Upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return req, nil, err
		}
		uploads = append(uploads, captioning.Upload{Name: header.Filename, Data: data})
	}
	return req, uploads, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > images.MaxImageSize {
		return nil, fmt.Errorf("%s: %w", header.Filename, errTooLarge)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}
	if len(data) > images.MaxImageSize {
		return nil, fmt.Errorf("%s: %w", header.Filename, errTooLarge)
	}
	return data, nil
}
