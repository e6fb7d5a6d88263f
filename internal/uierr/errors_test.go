package uierr

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementNotFoundCarriesContext(t *testing.T) {
	err := fmt.Errorf("click save: %w", &ElementNotFoundError{Element: "save_button.png", Timeout: 5 * time.Second})

	require.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "save_button.png")
	assert.Contains(t, err.Error(), "5s")

	var nf *ElementNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 5*time.Second, nf.Timeout)
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Operation: "wait for progress_bar.png", Timeout: 2 * time.Second, Attempts: 4}

	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "operation timed out: wait for progress_bar.png after 2s (4 attempts)", err.Error())
}

func TestImageLoadErrorUnwraps(t *testing.T) {
	err := &ImageLoadError{Path: "missing.png", Err: os.ErrNotExist}

	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "missing.png")
}

func TestOperationErrors(t *testing.T) {
	base := errors.New("permission denied")

	fileErr := FileOperation("save", "/tmp/out.txt", base)
	assert.Equal(t, "file operation failed: save [/tmp/out.txt]: permission denied", fileErr.Error())
	assert.True(t, errors.Is(fileErr, base))

	ocrErr := OCROperation("recognize", "empty result", nil)
	assert.Equal(t, "ocr operation failed: recognize: empty result", ocrErr.Error())

	var opErr *OperationError
	require.True(t, errors.As(ScanOperation("start", "", base), &opErr))
	assert.Equal(t, DomainScan, opErr.Domain)
}
