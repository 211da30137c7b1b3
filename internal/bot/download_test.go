package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/stretchr/testify/assert"
)

func TestDownloadFromTelegramFileID_Success(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/foo.jpeg" {
			handlerCalled = true
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("123"))
		} else {
			t.Fatal(fmt.Sprintf("invalid request to test server: %s %s", r.Method, r.URL.Path))
		}
	}))
	defer ts.Close()

	getFileDirectURL := func(fileID string) (string, error) {
		return fmt.Sprintf("%s/%s.jpeg", ts.URL, fileID), nil
	}

	data, contentType, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "foo")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, []byte("123"), data)
	assert.Equal(t, "image/jpeg", contentType)
	assert.True(t, handlerCalled)
}

func TestDownloadFromTelegramFileID_URLResolutionError(t *testing.T) {
	getFileDirectURL := func(fileID string) (string, error) {
		return "", fmt.Errorf("failed to get URL")
	}

	_, _, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "test-file-id")
	if err == nil {
		t.Fatal("expected error for URL resolution failure")
	}
	if !strings.Contains(err.Error(), "failed to get file URL") {
		t.Errorf("expected error message to contain 'failed to get file URL', got: %v", err)
	}
}

func TestImageDownloader_DownloadFromURL_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, _, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestImageDownloader_DownloadFromURL_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should have been canceled")
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewImageDownloader().DownloadFromURL(ctx, ts.URL)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestImageDownloader_DownloadFromURL_SizeLimit(t *testing.T) {
	largeData := make([]byte, 100)
	for i := range largeData {
		largeData[i] = byte(i % 256)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(largeData)
	}))
	defer ts.Close()

	_, _, err := NewImageDownloader().WithMaxSize(50).DownloadFromURL(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error for file exceeding size limit")
	}
	assert.True(t, errors.Is(err, imagefile.ErrTooLarge))
}

func TestImageDownloader_DownloadFromURL_ContentLengthExceedsLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "999999999")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	_, _, err := NewImageDownloader().WithMaxSize(1000).DownloadFromURL(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error when Content-Length exceeds limit")
	}
	assert.True(t, errors.Is(err, imagefile.ErrTooLarge))
}

func TestImageDownloader_DownloadFromURL_InvalidContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer ts.Close()

	_, _, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error for non-image content type")
	}
	if !strings.Contains(err.Error(), "invalid content type") {
		t.Errorf("expected error message to contain 'invalid content type', got: %v", err)
	}
}

func TestImageDownloader_DownloadFromURL_AcceptsImageContentType(t *testing.T) {
	imageData := []byte{0x89, 0x50, 0x4E, 0x47} // PNG magic bytes
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(imageData)
	}))
	defer ts.Close()

	data, contentType, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	assert.Equal(t, imageData, data)
	assert.Equal(t, "image/png", contentType)
}
