package captioning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel records invocations and answers through InferFunc
type stubModel struct {
	InferFunc func(ctx context.Context, img *images.Decoded, req Request) (string, error)
	calls     int
	requests  []Request
}

func (m *stubModel) Infer(ctx context.Context, img *images.Decoded, req Request) (string, error) {
	m.calls++
	m.requests = append(m.requests, req)
	if m.InferFunc != nil {
		return m.InferFunc(ctx, img, req)
	}
	return "a dog running", nil
}

func pngBytes(t testing.TB, shade uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploads(t testing.TB, n int) []Upload {
	out := make([]Upload, n)
	for i := range out {
		out[i] = Upload{Name: fmt.Sprintf("img_%02d.png", i), Data: pngBytes(t, uint8(i))}
	}
	return out
}

func TestRunPreservesLengthAndOrder(t *testing.T) {
	for _, n := range []int{1, 7, MaxBatchSize} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			model := &stubModel{}
			batch := NewBatch(uploads(t, n))

			results, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
			require.NoError(t, err)
			require.Len(t, results, n)
			for i, r := range results {
				assert.Equal(t, batch.Items[i].Name, r.Name())
				assert.True(t, r.OK)
			}
			assert.Equal(t, n, model.calls)
		})
	}
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	model := &stubModel{}

	_, err := NewRunner(model).Run(context.Background(), NewBatch(nil), GenerationOptions{})
	require.ErrorIs(t, err, ErrEmptyBatch)
	assert.Equal(t, 0, model.calls)

	_, err = NewRunner(model).Run(context.Background(), nil, GenerationOptions{})
	require.ErrorIs(t, err, ErrEmptyBatch)
	assert.Equal(t, 0, model.calls)
}

func TestRunRejectsOversizeBatch(t *testing.T) {
	model := &stubModel{}

	_, err := NewRunner(model).Run(context.Background(), NewBatch(uploads(t, MaxBatchSize+1)), GenerationOptions{})
	require.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Equal(t, 0, model.calls)
}

func TestRunRejectsDuplicateStems(t *testing.T) {
	model := &stubModel{}
	batch := NewBatch([]Upload{
		{Name: "dog.png", Data: pngBytes(t, 1)},
		{Name: "photos/dog.jpg", Data: pngBytes(t, 2)},
	})

	_, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
	require.ErrorIs(t, err, ErrDuplicateItem)
	assert.Equal(t, 0, model.calls)
}

func TestRunDecodeFailureDoesNotAbortBatch(t *testing.T) {
	model := &stubModel{}
	batch := NewBatch([]Upload{
		{Name: "first.png", Data: pngBytes(t, 10)},
		{Name: "broken.png", Data: []byte("not a png")},
		{Name: "last.png", Data: pngBytes(t, 20)},
	})

	results, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.ErrorIs(t, results[1].Err, ErrImageDecode)
	assert.Equal(t, "ImageDecodeError", results[1].ErrorKind())
	assert.Equal(t, StatusFailed, batch.Items[1].Status)
	assert.True(t, results[2].OK)

	// one call per decoded item
	assert.Equal(t, 2, model.calls)
}

func TestRunModelFailureIsRecordedWithoutRetry(t *testing.T) {
	boom := errors.New("backend unavailable")
	model := &stubModel{
		InferFunc: func(ctx context.Context, img *images.Decoded, req Request) (string, error) {
			return "", boom
		},
	}
	batch := NewBatch(uploads(t, 3))

	results, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.OK)
		assert.ErrorIs(t, r.Err, ErrModelInvocation)
		assert.ErrorIs(t, r.Err, boom)
		assert.Equal(t, "ModelInvocationError", r.ErrorKind())
	}
	assert.Equal(t, 3, model.calls)

	summary := Summarize(results)
	assert.Equal(t, "0 succeeded / 3 failed", summary.String())
	assert.Equal(t, "img_00.png", summary.Failures[0].Name)
}

func TestRunBlankModelOutputIsAFailure(t *testing.T) {
	model := &stubModel{
		InferFunc: func(ctx context.Context, img *images.Decoded, req Request) (string, error) {
			return "  \n", nil
		},
	}

	results, err := NewRunner(model).Run(context.Background(), NewBatch(uploads(t, 1)), GenerationOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, ErrModelInvocation)
}

func TestRunDoesNotCacheIdenticalItems(t *testing.T) {
	data := pngBytes(t, 42)
	model := &stubModel{}
	batch := NewBatch([]Upload{
		{Name: "a.png", Data: data},
		{Name: "b.png", Data: data},
	})

	_, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
}

func TestRunAppliesOptions(t *testing.T) {
	model := &stubModel{}
	opts := GenerationOptions{Mode: ModeSimple, Length: LengthShort, Trigger: "studioX"}

	results, err := NewRunner(model).Run(context.Background(), NewBatch(uploads(t, 1)), opts)
	require.NoError(t, err)

	assert.Equal(t, "a dog running", results[0].Raw)
	assert.Equal(t, "studioX. a dog running", results[0].Caption)
	assert.Equal(t, Compose(opts), model.requests[0])
	assert.NotContains(t, model.requests[0].Prompt, "studioX")
}

func TestRunProgressIsAdvisory(t *testing.T) {
	batch := NewBatch(uploads(t, 4))
	runner := NewRunner(&stubModel{})

	var seen []Progress
	var busyDuringRun bool
	runner.OnProgress = func(p Progress) {
		busyDuringRun = runner.Busy()
		seen = append(seen, p)
		if p.Index == 2 {
			panic("progress sink exploded")
		}
	}

	results, err := runner.Run(context.Background(), batch, GenerationOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Len(t, seen, 4)
	assert.Equal(t, Progress{Index: 4, Total: 4, Name: "img_03.png", OK: true}, seen[3])
	assert.True(t, busyDuringRun)
	assert.False(t, runner.Busy())
}

func TestNewBatchCleansNames(t *testing.T) {
	batch := NewBatch([]Upload{
		{Name: "../../etc/passwd.png"},
		{Name: `C:\Users\me\cat.jpg`},
		{Name: ""},
		{Name: ".."},
		{Name: "uploads/.."},
		{Name: ".png"},
		{Name: "..jpg"},
	})

	assert.Equal(t, "passwd.png", batch.Items[0].Name)
	assert.Equal(t, "cat.jpg", batch.Items[1].Name)
	assert.Equal(t, "cat", batch.Items[1].Stem())
	assert.Equal(t, "image", batch.Items[2].Name)
	assert.Equal(t, "image", batch.Items[3].Name)
	assert.Equal(t, "image", batch.Items[4].Name)
	assert.Equal(t, "image.png", batch.Items[5].Name)
	assert.Equal(t, "image.jpg", batch.Items[6].Name)

	for _, item := range batch.Items {
		assert.NotEmpty(t, strings.Trim(item.Stem(), "."), item.Name)
	}
}

func TestRunRecordsDimensions(t *testing.T) {
	model := &stubModel{}
	batch := NewBatch(uploads(t, 1))

	_, err := NewRunner(model).Run(context.Background(), batch, GenerationOptions{})
	require.NoError(t, err)

	item := batch.Items[0]
	assert.Equal(t, StatusDecoded, item.Status)
	assert.Equal(t, 4, item.Width)
	assert.Equal(t, 4, item.Height)
}

func TestSummarize(t *testing.T) {
	results := []CaptionResult{
		{Item: &ImageItem{Name: "a.png"}, OK: true, Caption: "a"},
		{Item: &ImageItem{Name: "b.png"}, Err: &ItemError{Name: "b.png", Kind: ErrImageDecode, Err: errors.New("bad header")}},
		{Item: &ImageItem{Name: "c.png"}, OK: true, Caption: "c"},
	}

	summary := Summarize(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, "2 succeeded / 1 failed", summary.String())
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, Failure{Name: "b.png", Kind: "ImageDecodeError", Message: "b.png: image decode failed: bad header"}, summary.Failures[0])

	assert.Len(t, Successful(results), 2)
}
