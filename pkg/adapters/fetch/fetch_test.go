package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestFetch_HTTP(t *testing.T) {
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cat.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(body)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>expired</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New()

	r, err := f.Fetch(context.Background(), srv.URL+"/cat.png")
	require.NoError(t, err)
	assert.Equal(t, body, r.Data)
	assert.Equal(t, "png", r.Extension)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")

	_, err = f.Fetch(context.Background(), srv.URL+"/page")
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFetch_SizeLimit(t *testing.T) {
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	_, err := New(WithMaxBytes(int64(len(body)-1))).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_DataURL(t *testing.T) {
	body := pngBytes(t)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(body)

	r, err := New().Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, body, r.Data)
	assert.Equal(t, "image/png", r.MIMEType)

	_, err = New().Fetch(context.Background(), "data:image/png;base64,!!!")
	assert.Error(t, err)

	_, err = New().Fetch(context.Background(), "data:no-comma")
	assert.Error(t, err)
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	_, err := New().Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestFetch_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
