package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/barbershop/internal/apperr"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadSendsMultipartAndReturnsSecureURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(MaxUploadSize)) {
			return
		}
		assert.Equal(t, "proofs", r.FormValue("upload_preset"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "proof.png", header.Filename)
		got, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn.example.com/proof.png"}`))
	}))
	defer srv.Close()

	svc := NewUploadService(srv.URL, "proofs", time.Second, zap.NewNop())
	url, err := svc.Upload(context.Background(), "proof.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/proof.png", url)
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc := NewUploadService("http://unused.invalid", "", time.Second, zap.NewNop())

	_, err := svc.Upload(context.Background(), "notes.txt", []byte("just some text"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxUploadSize)...)
	_, err = svc.Upload(context.Background(), "huge.png", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Upload(context.Background(), "empty.png", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestUploadMapsUpstreamFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	svc := NewUploadService(srv.URL, "missing", time.Second, zap.NewNop())
	_, err := svc.Upload(context.Background(), "proof.png", pngHeader)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Upload preset not found")
}

func TestUploadTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	svc := NewUploadService(srv.URL, "", 50*time.Millisecond, zap.NewNop())
	_, err := svc.Upload(context.Background(), "proof.png", pngHeader)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestUploadWithoutEndpoint(t *testing.T) {
	svc := NewUploadService("", "", 0, zap.NewNop())
	_, err := svc.Upload(context.Background(), "proof.png", pngHeader)
	assert.ErrorIs(t, err, ErrUploadNotConfigured)
}
