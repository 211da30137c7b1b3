package imagefile

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// DataURI returns data encoded as a base64 data URI with the given MIME type.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripDataURIHeader returns the payload after the first comma of a data URI.
// Input without a "data:" header is returned unchanged.
func StripDataURIHeader(uri string) string {
	if !strings.HasPrefix(uri, "data:") {
		return uri
	}
	if i := strings.IndexByte(uri, ','); i >= 0 {
		return uri[i+1:]
	}
	return ""
}

// Encode reads r to completion and returns its content as raw base64,
// without the data URI header. It either succeeds once or fails once.
func Encode(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return StripDataURIHeader(DataURI(mimeType, data)), nil
}

// EncodeImage is Encode for an in-memory Image.
func EncodeImage(ctx context.Context, img *Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image provided")
	}
	return Encode(ctx, bytes.NewReader(img.Data), img.MIMEType)
}

// Decode reverses Encode. A leading data URI header is tolerated.
func Decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(StripDataURIHeader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}
