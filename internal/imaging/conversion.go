package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEHEIC = "image/heic"
	MIMEHEIF = "image/heif"
	MIMEPDF  = "application/pdf"
)

// DefaultJPEGQuality is used when no quality is configured
const DefaultJPEGQuality = 90

// DetectType sniffs the content type of data, falling back to the declared one
func DetectType(data []byte, declared string) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return MIMEJPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return MIMEPNG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return MIMEGIF
	case bytes.HasPrefix(data, []byte("%PDF")):
		return MIMEPDF
	case isHEICFormat(data):
		return MIMEHEIC
	}

	declared = normalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}

// TypeFromExtension maps a file name to the content type the scanner understands
func TypeFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return MIMEJPEG
	case ".png":
		return MIMEPNG
	case ".gif":
		return MIMEGIF
	case ".pdf":
		return MIMEPDF
	case ".heic":
		return MIMEHEIC
	case ".heif":
		return MIMEHEIF
	default:
		return ""
	}
}

// Decode turns encoded image or PDF bytes into an image
func Decode(data []byte, contentType string) (image.Image, error) {
	switch DetectType(data, contentType) {
	case MIMEPDF:
		return pdfToImage(data)
	case MIMEHEIC, MIMEHEIF:
		// Go's standard image package doesn't support HEIC
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// EncodeJPEG returns data as JPEG, re-encoding anything that is not already JPEG
func EncodeJPEG(data []byte, contentType string, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	if DetectType(data, contentType) == MIMEJPEG {
		return data, nil
	}

	img, err := Decode(data, contentType)
	if err != nil {
		return nil, err
	}
	return JPEGFromImage(img, quality)
}

// JPEGFromImage encodes a decoded or raw frame as JPEG
func JPEGFromImage(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG returns data as PNG, converting PDFs and non-PNG images
func EncodePNG(data []byte, contentType string) ([]byte, error) {
	if DetectType(data, contentType) == MIMEPNG {
		return data, nil
	}

	img, err := Decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("converting image to PNG: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfToImage renders the first page of a PDF; scanned documents are single page
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
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

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func normalizeMIME(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType
}
