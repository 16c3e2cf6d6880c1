package detections

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/pkg/storage"
)

// Domain errors for detection operations.
var (
	ErrNotFound        = errors.New("detection not found")
	ErrDuplicate       = errors.New("detection already exists")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrBundleTooLarge  = errors.New("evidence exceeds maximum size")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum size")
	ErrArchiveDisabled = errors.New("evidence archive is not configured")
)

// MapHTTPStatus maps detection domain errors to appropriate HTTP status codes.
// Archive errors fall through to the storage mapping.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrArchiveDisabled) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidCommand) || errors.Is(err, evidence.ErrInvalidBundle) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrBundleTooLarge) || errors.Is(err, ErrBatchTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return storage.MapHTTPStatus(err)
}
