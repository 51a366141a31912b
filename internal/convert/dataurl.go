package convert

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxImageBytes caps uploaded event images.
const DefaultMaxImageBytes = 5 << 20

var (
	ErrEmptyImage  = errors.New("convert: image is empty")
	ErrImageTooBig = errors.New("convert: image exceeds size limit")
	ErrNotAnImage  = errors.New("convert: file is not an image")
	ErrBadDataURL  = errors.New("convert: malformed data URL")
)

// ImageToDataURL reads an uploaded image and encodes it as
// "data:<mime>;base64,<payload>". The content type is sniffed from the bytes,
// not taken from the client. maxBytes <= 0 uses DefaultMaxImageBytes.
func ImageToDataURL(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	// Read one byte past the limit to detect oversized uploads.
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("convert: read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(data)) > maxBytes {
		return "", ErrImageTooBig
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotAnImage, mt.String())
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mt.String()) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeOnly(mt.String()))
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(s string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return meta, []byte(payload), nil
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return meta, data, nil
}

// IsImageDataURL reports whether s is a decodable image data URL.
func IsImageDataURL(s string) bool {
	mediaType, data, err := DecodeDataURL(s)
	if err != nil || len(data) == 0 {
		return false
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return false
	}
	return strings.HasPrefix(mimetype.Detect(data).String(), "image/")
}

// mimeOnly drops parameters such as "; charset=utf-8".
func mimeOnly(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
