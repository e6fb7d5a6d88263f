package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract"
)

// TesseractReader reads text from images with the local tesseract install
type TesseractReader struct {
	mu        sync.Mutex
	languages []string
	whitelist string
}

// NewTesseractReader creates a reader for the given tesseract languages,
// "eng" when none are given
func NewTesseractReader(languages ...string) *TesseractReader {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractReader{languages: languages}
}

// WithWhitelist restricts recognition to chars
func (r *TesseractReader) WithWhitelist(chars string) *TesseractReader {
	r.whitelist = chars
	return r
}

// ReadText returns the trimmed text found in img
func (r *TesseractReader) ReadText(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	// A tesseract handle is not safe for concurrent use
	r.mu.Lock()
	defer r.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("failed to set languages %v: %w", r.languages, err)
	}
	if r.whitelist != "" {
		if err := client.SetWhitelist(r.whitelist); err != nil {
			return "", fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognise text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
