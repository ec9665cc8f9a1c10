package inputs

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func names(t *testing.T, args ...string) []string {
	t.Helper()
	uploads, err := Collect(context.Background(), images.NewFetcher(), args)
	require.NoError(t, err)
	out := make([]string, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, u.Name)
	}
	return out
}

func TestCollectDirectoryIsLexicalAndFiltered(t *testing.T) {
	dir := t.TempDir()
	png := testimage.PNG(t, 2, 2, color.White)
	writeFile(t, filepath.Join(dir, "b.png"), png)
	writeFile(t, filepath.Join(dir, "a.jpg"), png)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("hello"))
	writeFile(t, filepath.Join(dir, "sub", "c.webp"), png)

	assert.Equal(t, []string{"a.jpg", "b.png", "c.webp"}, names(t, dir))
}

func TestCollectKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	png := testimage.PNG(t, 2, 2, color.White)
	writeFile(t, filepath.Join(dir, "z.png"), png)
	writeFile(t, filepath.Join(dir, "readme"), []byte("explicit files are always taken"))

	got := names(t, filepath.Join(dir, "z.png"), filepath.Join(dir, "readme"))
	assert.Equal(t, []string{"z.png", "readme"}, got)
}

func TestCollectURL(t *testing.T) {
	png := testimage.PNG(t, 2, 2, color.Black)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	uploads, err := Collect(context.Background(), images.NewFetcher(), []string{srv.URL + "/photos/dog.png"})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "dog.png", uploads[0].Name)
	assert.Equal(t, png, uploads[0].Data)
}

func TestCollectMissingFile(t *testing.T) {
	_, err := Collect(context.Background(), images.NewFetcher(), []string{filepath.Join(t.TempDir(), "missing.png")})
	assert.Error(t, err)
}
