package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedImage is returned for uploads that cannot be turned into a PNG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// sniffContentType trusts the declared type unless it is missing or generic
func sniffContentType(data []byte, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}
	if isHEIC(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}

// toPNG normalizes a receipt upload to PNG. PDFs are rendered from their
// first page.
func toPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := sniffContentType(data, contentType)

	var (
		img image.Image
		err error
	)
	switch {
	case mimeType == "image/png" && !isHEIC(data):
		return data, nil
	case mimeType == "application/pdf":
		img, err = renderFirstPage(data)
	case isHEIC(data) || strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif"):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w %q: supported formats are JPEG, PNG, GIF, HEIC and PDF", ErrUnsupportedImage, mimeType)
		}
		if err != nil {
			err = fmt.Errorf("decoding image: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func renderFirstPage(pdf []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEIC looks for an ftyp box with a HEIF family brand
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
