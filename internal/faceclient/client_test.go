package faceclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/face"
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDetectProtocol(t *testing.T) {
	var got detectRequest
	var loaded face.Assets
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/load":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&loaded))
			w.WriteHeader(http.StatusNoContent)
		case "/detect":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(detectResponse{FacesDetected: 2, Score: 0.8, Descriptor: []float32{0.1, 0.2}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", false, time.Second)
	require.NoError(t, c.LoadModels(context.Background(), face.DefaultAssets("/srv/models")))
	assert.Equal(t, "/srv/models", loaded.Path)
	assert.Len(t, loaded.Nets, 3)

	det, err := c.Detect(context.Background(), solid(color.White), face.DefaultDetectorOptions)
	require.NoError(t, err)
	assert.True(t, det.Found)
	assert.Equal(t, face.Descriptor{0.1, 0.2}, det.Descriptor)
	assert.Equal(t, 224, got.InputSize)
	assert.Equal(t, 0.4, got.ScoreThreshold)

	raw, err := base64.StdEncoding.DecodeString(got.Image)
	require.NoError(t, err)
	_, err = face.DecodeImage(raw)
	assert.NoError(t, err)
}

func TestDetectNoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(detectResponse{})
	}))
	defer srv.Close()

	det, err := New(srv.URL, false, time.Second).Detect(context.Background(), solid(color.Black), face.DefaultDetectorOptions)
	require.NoError(t, err)
	assert.False(t, det.Found)
}

func TestServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/load" {
			http.Error(w, "weights missing", http.StatusInternalServerError)
			return
		}
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, false, time.Second)
	err := c.LoadModels(context.Background(), face.DefaultAssets(""))
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "weights missing")

	_, err = c.Detect(context.Background(), solid(color.White), face.DefaultDetectorOptions)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)

	assert.ErrorIs(t, c.Health(context.Background()), ErrServiceUnavailable)
}

func TestSkipMode(t *testing.T) {
	c := New("", true, 0)
	ctx := context.Background()
	require.NoError(t, c.LoadModels(ctx, face.DefaultAssets("")))
	require.NoError(t, c.Health(ctx))

	a, err := c.Detect(ctx, solid(color.RGBA{200, 10, 10, 255}), face.DefaultDetectorOptions)
	require.NoError(t, err)
	again, err := c.Detect(ctx, solid(color.RGBA{200, 10, 10, 255}), face.DefaultDetectorOptions)
	require.NoError(t, err)
	other, err := c.Detect(ctx, solid(color.RGBA{10, 10, 200, 255}), face.DefaultDetectorOptions)
	require.NoError(t, err)

	require.True(t, a.Found)
	assert.Len(t, a.Descriptor, SkipDescriptorLength)

	same, err := face.Compare(a.Descriptor, again.Descriptor)
	require.NoError(t, err)
	assert.True(t, same.Match)

	diff, err := face.Compare(a.Descriptor, other.Descriptor)
	require.NoError(t, err)
	assert.False(t, diff.Match)

	none, err := c.Detect(ctx, solid(color.Transparent), face.DefaultDetectorOptions)
	require.NoError(t, err)
	assert.False(t, none.Found)
}
