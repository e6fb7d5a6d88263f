package actions

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/uierr"
)

// TakeScreenshot waits the screenshot delay, captures region (the whole
// screen when nil) and writes it as {purpose}_{YYYYMMDD_HHMMSS}.png to the
// screenshot directory. It returns the file path.
func (e *Engine) TakeScreenshot(purpose string, region *cv.Region) (string, error) {
	if e.screenshotDelay > 0 {
		e.clock.Sleep(e.screenshotDelay)
	}

	rect, err := e.capturer.Bounds()
	if err != nil {
		return "", fmt.Errorf("failed to get screen bounds: %w", err)
	}
	if region != nil {
		if err := region.Validate(); err != nil {
			return "", err
		}
		rect = region.Rect()
	}

	img, err := e.capturer.Capture(rect)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.MkdirAll(e.screenshotDir, 0755); err != nil {
		return "", uierr.FileOperation("create screenshot directory", e.screenshotDir, err)
	}

	filename := fmt.Sprintf("%s_%s.png", purpose, e.clock.Now().Format("20060102_150405"))
	path := filepath.Join(e.screenshotDir, filename)
	if err := writePNG(path, img); err != nil {
		return "", uierr.FileOperation("save screenshot", path, err)
	}

	e.logger.InfoWithContext("screenshot saved", map[string]interface{}{
		"purpose": purpose,
		"path":    path,
	})
	return path, nil
}

// Screenshot captures the whole screen for purpose
func (e *Engine) Screenshot(purpose string) (string, error) {
	return e.TakeScreenshot(purpose, nil)
}

// CompareImages scores the similarity of two image files. The diff mask is
// set when the similarity is below threshold.
func (e *Engine) CompareImages(expectedPath, actualPath string, threshold float64) (cv.Comparison, error) {
	expected, err := e.cache.Load(expectedPath)
	if err != nil {
		return cv.Comparison{}, &uierr.ImageMatchError{Path: expectedPath, Threshold: threshold, Err: err}
	}
	actual, err := e.cache.Load(actualPath)
	if err != nil {
		return cv.Comparison{}, &uierr.ImageMatchError{Path: actualPath, Threshold: threshold, Err: err}
	}

	result := cv.CompareImages(expected, actual, threshold)
	e.logger.InfoWithContext("images compared", map[string]interface{}{
		"expected":   expectedPath,
		"actual":     actualPath,
		"similarity": fmt.Sprintf("%.4f", result.Similarity),
	})
	return result, nil
}

// VerifyScreen compares region of the current screen (the whole screen
// when nil) with the reference image at path. A similarity below threshold
// fails with *uierr.ImageMatchError.
func (e *Engine) VerifyScreen(path string, region *cv.Region, threshold float64) (cv.Comparison, error) {
	start := e.clock.Now()

	comparison, err := e.compareScreen(path, region, threshold)
	if err == nil && comparison.Similarity < threshold {
		err = &uierr.ImageMatchError{Path: path, Similarity: comparison.Similarity, Threshold: threshold}
	}
	return comparison, e.finish("verify_screen", path, start, err)
}

func (e *Engine) compareScreen(path string, region *cv.Region, threshold float64) (cv.Comparison, error) {
	reference, err := e.cache.Load(path)
	if err != nil {
		return cv.Comparison{}, err
	}

	rect, err := e.capturer.Bounds()
	if err != nil {
		return cv.Comparison{}, fmt.Errorf("failed to get screen bounds: %w", err)
	}
	if region != nil {
		rect = region.Rect()
	}
	actual, err := e.capturer.Capture(rect)
	if err != nil {
		return cv.Comparison{}, fmt.Errorf("failed to capture screen: %w", err)
	}
	return cv.CompareImages(reference, actual, threshold), nil
}

// ReadElementText waits up to timeout for path and reads the text inside
// the matched area
func (e *Engine) ReadElementText(path string, timeout time.Duration) (string, error) {
	return e.ReadTemplateText(e.template(path), timeout)
}

// ReadTemplateText is ReadElementText with the template's own threshold and region
func (e *Engine) ReadTemplateText(t cv.Template, timeout time.Duration) (string, error) {
	start := e.clock.Now()
	path := t.Path
	if e.ocr == nil {
		err := uierr.OCROperation("read_text", "no text reader configured", nil)
		return "", e.finish("read_element_text", path, start, err)
	}

	result, err := e.waitLocate(t, timeout)
	if err != nil {
		return "", e.finish("read_element_text", path, start, err)
	}

	img, err := e.capturer.Capture(result.Region)
	if err != nil {
		return "", e.finish("read_element_text", path, start, fmt.Errorf("failed to capture element: %w", err))
	}

	text, err := e.ReadText(img)
	return text, e.finish("read_element_text", path, start, err)
}

// ReadText runs the text reader over img
func (e *Engine) ReadText(img image.Image) (string, error) {
	if e.ocr == nil {
		return "", uierr.OCROperation("read_text", "no text reader configured", nil)
	}
	text, err := e.ocr.ReadText(img)
	if err != nil {
		return "", uierr.OCROperation("read_text", "", err)
	}
	return text, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
