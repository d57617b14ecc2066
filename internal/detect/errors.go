package detect

import (
	"errors"
	"fmt"
)

var (
	ErrNERUnavailable   = errors.New("onnx ner unavailable")
	ErrInvalidDetection = errors.New("invalid detection")
)

// ValidationError reports a malformed detection. It matches
// ErrInvalidDetection with errors.Is.
type ValidationError struct {
	Category Category
	Index    int
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("invalid detection #%d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s detection #%d: %s %s", e.Category, e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidDetection }

// DetectorError wraps a failure of the detector responsible for Category.
type DetectorError struct {
	Category Category
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("%s detector: %v", e.Category, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }
