package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1700000000", "folder": "f", "api_key": "key", "public_id": "p"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=f&public_id=p&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadBytes(t *testing.T) {
	var fields map[string]string
	var fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		fileBody = string(b)
		_ = json.NewEncoder(w).Encode(UploadResult{PublicID: "faces/ada", SecureURL: "https://res/ada.jpg"})
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "faces")
	c.APIBase = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadBytes(context.Background(), []byte("jpeg-bytes"), "ada.jpg", "ada")
	require.NoError(t, err)
	assert.Equal(t, "https://res/ada.jpg", res.SecureURL)
	assert.Equal(t, "jpeg-bytes", fileBody)
	assert.Equal(t, "faces", fields["folder"])
	assert.Equal(t, "true", fields["overwrite"])
	assert.Equal(t, c.sign(map[string]string{
		"timestamp": "1700000000", "folder": "faces", "public_id": "ada", "overwrite": "true",
	}), fields["signature"])
}

func TestUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.APIBase = srv.URL
	_, err := c.UploadBytes(context.Background(), []byte("x"), "x.jpg", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			_, _ = w.Write([]byte("image"))
		case "/big.jpg":
			_, _ = w.Write([]byte(strings.Repeat("x", MaxImageBytes+1)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	data, err := c.Fetch(context.Background(), srv.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image", string(data))

	_, err = c.Fetch(context.Background(), srv.URL+"/big.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Fetch(context.Background(), nil, srv.URL+"/missing.jpg")
	assert.Error(t, err)
}
