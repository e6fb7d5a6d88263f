package uierr

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is matched by errors.Is for every "element did not appear" failure
var ErrNotFound = errors.New("element not found")

// ElementNotFoundError is returned when a locate/click exhausted its timeout
// without a qualifying match
type ElementNotFoundError struct {
	Element string
	Timeout time.Duration
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s (timeout %v)", e.Element, e.Timeout)
}

func (e *ElementNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ElementNotVisibleError is returned when an element was located but a
// visibility check on it failed
type ElementNotVisibleError struct {
	Element string
	Reason  string
}

func (e *ElementNotVisibleError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("element not visible: %s", e.Element)
	}
	return fmt.Sprintf("element not visible: %s: %s", e.Element, e.Reason)
}

// TimeoutError is returned when a wait predicate exceeded its budget
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out: %s after %v (%d attempts)", e.Operation, e.Timeout, e.Attempts)
}

// ImageLoadError is returned when a reference image is missing or cannot be decoded
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// ImageMatchError is returned when an image comparison produced no usable result
// or fell below its threshold
type ImageMatchError struct {
	Path       string
	Similarity float64
	Threshold  float64
	Err        error
}

func (e *ImageMatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image match failed: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("image match failed: %s (similarity %.4f, threshold %.2f)", e.Path, e.Similarity, e.Threshold)
}

func (e *ImageMatchError) Unwrap() error {
	return e.Err
}

// Domain identifies which page-level feature an OperationError belongs to
type Domain string

const (
	DomainFile Domain = "file"
	DomainOCR  Domain = "ocr"
	DomainScan Domain = "scan"
)

// OperationError re-tags a lower level failure with a feature area and
// operation name. It covers the file, OCR and scan wrappers of the page layer.
type OperationError struct {
	Domain    Domain
	Operation string
	Target    string // file path or element name, optional
	Detail    string
	Err       error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s operation failed: %s", e.Domain, e.Operation)
	if e.Target != "" {
		msg += fmt.Sprintf(" [%s]", e.Target)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// FileOperation wraps err as a file operation failure
func FileOperation(operation, path string, err error) error {
	return &OperationError{Domain: DomainFile, Operation: operation, Target: path, Err: err}
}

// OCROperation wraps err as an OCR failure
func OCROperation(operation, detail string, err error) error {
	return &OperationError{Domain: DomainOCR, Operation: operation, Detail: detail, Err: err}
}

// ScanOperation wraps err as a scan failure
func ScanOperation(operation, detail string, err error) error {
	return &OperationError{Domain: DomainScan, Operation: operation, Detail: detail, Err: err}
}

// IsNotFound reports whether err means an element never appeared
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a wait timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
