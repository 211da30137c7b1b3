package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDownloadTimeout is the default timeout for image downloads
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxImageSize matches the validator limit
	DefaultMaxImageSize = imagefile.MaxImageSize
)

// ImageDownloader provides unified image downloading with configurable options.
type ImageDownloader struct {
	client  *resty.Client
	timeout time.Duration
	maxSize int64
}

// NewImageDownloader creates a new ImageDownloader with default settings.
func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{
		client:  resty.New().SetDebug(false).SetTimeout(DefaultDownloadTimeout),
		timeout: DefaultDownloadTimeout,
		maxSize: DefaultMaxImageSize,
	}
}

// WithTimeout sets a custom timeout for downloads.
func (d *ImageDownloader) WithTimeout(timeout time.Duration) *ImageDownloader {
	d.timeout = timeout
	d.client.SetTimeout(timeout)
	return d
}

// WithMaxSize sets a custom maximum file size.
func (d *ImageDownloader) WithMaxSize(maxSize int64) *ImageDownloader {
	d.maxSize = maxSize
	return d
}

// DownloadFromURL downloads image data from a URL and returns it with the
// Content-Type the server reported. It respects context cancellation and
// enforces the size limit.
func (d *ImageDownloader) DownloadFromURL(ctx context.Context, imageURL string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.client.R().
		SetContext(reqCtx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: status %d", res.StatusCode())
	}

	contentType := res.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return nil, "", fmt.Errorf("invalid content type: expected image/*, got %s", contentType)
	}

	if res.RawResponse.ContentLength > d.maxSize {
		return nil, "", fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", imagefile.ErrTooLarge, res.RawResponse.ContentLength, d.maxSize)
	}

	// LimitReader enforces the limit even if Content-Length is missing or wrong
	data, err := io.ReadAll(io.LimitReader(body, d.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, "", fmt.Errorf("%w: exceeds limit of %d bytes", imagefile.ErrTooLarge, d.maxSize)
	}

	return data, contentType, nil
}

// DownloadFromTelegramFileID downloads an image from Telegram using a file ID.
// It uses the provided function to resolve the file ID to a direct URL.
func (d *ImageDownloader) DownloadFromTelegramFileID(
	ctx context.Context,
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) ([]byte, string, error) {
	log.Info().Str("fileID", fileID).Msg("downloading telegram file")

	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file URL: %w", err)
	}

	return d.DownloadFromURL(ctx, url)
}
