package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/models"
	"github.com/lehigh-university-libraries/captioner/internal/storage"
	"github.com/lehigh-university-libraries/captioner/internal/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	err   error
	calls int
}

func (s *stubSource) Get(ctx context.Context) (captioning.Model, error) {
	if s.err != nil {
		return nil, s.err
	}
	return captioning.ModelFunc(func(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
		s.calls++
		return "a dog running", nil
	}), nil
}

func newServer(t *testing.T, source ModelSource) (*httptest.Server, *storage.RunStore) {
	t.Helper()
	store := storage.New(8, time.Hour)
	h := New(store, source, "stub", "stub-model")
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

type part struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postBatch(t *testing.T, srv *httptest.Server, fields map[string]string, files ...part) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	resp, err := http.Post(srv.URL+"/api/batches", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateBatch(t *testing.T) {
	source := &stubSource{}
	srv, store := newServer(t, source)

	png := testimage.PNG(t, 8, 8, color.White)
	resp := postBatch(t, srv,
		map[string]string{"trigger": "studioX", "length": "short"},
		part{"dog.png", png},
		part{"broken.jpg", []byte("not an image")},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run models.CaptionRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "short", run.Length)
	assert.Equal(t, 1, run.Summary.Succeeded)
	assert.Equal(t, 1, run.Summary.Failed)
	require.Len(t, run.Items, 2)
	assert.Equal(t, "studioX. a dog running", run.Items[0].Caption)
	assert.Equal(t, "ImageDecodeError", run.Items[1].ErrorKind)
	assert.Equal(t, 1, source.calls)

	_, ok := store.Get(run.ID)
	assert.True(t, ok)
}

func TestCreateBatchRejections(t *testing.T) {
	png := testimage.PNG(t, 4, 4, color.White)

	tests := []struct {
		name   string
		fields map[string]string
		files  []part
		code   int
	}{
		{name: "empty batch", code: http.StatusBadRequest},
		{name: "invalid mode", fields: map[string]string{"mode": "poetic"}, files: []part{{"a.png", png}}, code: http.StatusBadRequest},
		{name: "duplicate stems", files: []part{{"a.png", png}, {"A.jpg", png}}, code: http.StatusBadRequest},
		{name: "oversize file", files: []part{{"big.png", make([]byte, images.MaxImageSize+1)}}, code: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{}
			srv, _ := newServer(t, source)
			resp := postBatch(t, srv, tt.fields, tt.files...)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, 0, source.calls)
		})
	}
}

func TestCreateBatchTooLarge(t *testing.T) {
	source := &stubSource{}
	srv, _ := newServer(t, source)

	png := testimage.PNG(t, 2, 2, color.White)
	files := make([]part, captioning.MaxBatchSize+1)
	for i := range files {
		files[i] = part{name: "img" + strings.Repeat("x", i) + ".png", data: png}
	}

	resp := postBatch(t, srv, nil, files...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, source.calls)
}

func TestCreateBatchModelUnavailable(t *testing.T) {
	srv, store := newServer(t, &stubSource{err: errors.New("connection refused")})

	resp := postBatch(t, srv, nil, part{"a.png", testimage.PNG(t, 4, 4, color.White)})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, store.List())
}

func TestCreateBatchFromURLs(t *testing.T) {
	png := testimage.PNG(t, 4, 4, color.Black)
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(png)
	}))
	defer imageSrv.Close()

	srv, _ := newServer(t, &stubSource{})

	body := `{"image_urls": ["` + imageSrv.URL + `/scans/cat.png"], "mode": "descriptive"}`
	resp, err := http.Post(srv.URL+"/api/batches", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run models.CaptionRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "descriptive", run.Mode)
	require.Len(t, run.Items, 1)
	assert.Equal(t, "cat.png", run.Items[0].Name)
	assert.True(t, run.Items[0].OK)
}

func TestArchiveEvictsRun(t *testing.T) {
	srv, store := newServer(t, &stubSource{})

	resp := postBatch(t, srv, map[string]string{"trigger": "studioX"}, part{"dog.png", testimage.PNG(t, 4, 4, color.White)})
	var run models.CaptionRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	archiveResp, err := http.Get(srv.URL + "/api/batches/" + run.ID + "/archive")
	require.NoError(t, err)
	defer archiveResp.Body.Close()
	require.Equal(t, http.StatusOK, archiveResp.StatusCode)
	assert.Equal(t, "application/zip", archiveResp.Header.Get("Content-Type"))
	assert.Contains(t, archiveResp.Header.Get("Content-Disposition"), "captions.zip")

	data, err := io.ReadAll(archiveResp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "images/dog.png", zr.File[0].Name)
	assert.Equal(t, "captions/dog.txt", zr.File[1].Name)

	_, ok := store.Get(run.ID)
	assert.False(t, ok)

	again, err := http.Get(srv.URL + "/api/batches/" + run.ID + "/archive")
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}

func TestArchiveWithoutSuccesses(t *testing.T) {
	srv, store := newServer(t, &stubSource{})

	resp := postBatch(t, srv, nil, part{"broken.png", []byte("garbage")})
	var run models.CaptionRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	archiveResp, err := http.Get(srv.URL + "/api/batches/" + run.ID + "/archive")
	require.NoError(t, err)
	defer archiveResp.Body.Close()
	assert.Equal(t, http.StatusConflict, archiveResp.StatusCode)

	_, ok := store.Get(run.ID)
	assert.True(t, ok)
}

func TestGetListAndDeleteBatch(t *testing.T) {
	srv, _ := newServer(t, &stubSource{})

	resp := postBatch(t, srv, nil, part{"dog.png", testimage.PNG(t, 4, 4, color.White)})
	var run models.CaptionRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	getResp, err := http.Get(srv.URL + "/api/batches/" + run.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	listResp, err := http.Get(srv.URL + "/api/batches")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var runs []models.CaptionRun
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/batches/"+run.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing, err := http.Get(srv.URL + "/api/batches/" + run.ID)
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestStatus(t *testing.T) {
	srv, _ := newServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, false, status["busy"])
	assert.Equal(t, "stub", status["provider"])
}
