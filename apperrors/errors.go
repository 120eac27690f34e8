// Package apperrors defines the error taxonomy surfaced at the HTTP boundary.
// Every failure leaving a handler is mapped to one Kind with a human-readable
// message and, where useful, structured details.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error category.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindUpstream   Kind = "UPSTREAM_SERVICE_ERROR"
	KindInternal   Kind = "INTERNAL_ERROR"
)

// AppError is the unified application error type.
type AppError struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError. Upstream failures are flagged retryable so callers
// can make their own retry decision; nothing in this service retries.
func New(kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  kind == KindUpstream,
	}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// --- validation ---

// Validation creates a generic client-input error.
func Validation(message string) *AppError {
	return New(KindValidation, message, http.StatusBadRequest)
}

// MissingField reports a required request field that was not supplied.
func MissingField(field string) *AppError {
	return Validation(fmt.Sprintf("Missing required field: %s", field)).WithDetail("field", field)
}

// MissingFile reports a transcription request that carried no audio file.
// received lists the field names that were present.
func MissingFile(accepted, received []string) *AppError {
	return Validation("No audio file found in request").
		WithDetail("acceptedFields", accepted).
		WithDetail("receivedFields", received)
}

// UnsupportedFormat names the offending file and the declared/detected types.
func UnsupportedFormat(filename, declaredType, detectedType string) *AppError {
	e := Validation(fmt.Sprintf("Unsupported file format: %s (type: %s)", filename, displayType(declaredType, detectedType))).
		WithDetail("filename", filename)
	if declaredType != "" {
		e.WithDetail("declaredType", declaredType)
	}
	if detectedType != "" {
		e.WithDetail("detectedType", detectedType)
	}
	return e
}

// PayloadTooLarge rejects a file above the configured bound.
func PayloadTooLarge(size, limit int64) *AppError {
	e := New(KindValidation, fmt.Sprintf("File exceeds the maximum allowed size of %d bytes", limit), http.StatusRequestEntityTooLarge).
		WithDetail("limit", limit)
	if size > 0 {
		e.WithDetail("size", size)
	}
	return e
}

// --- resources ---

// NotFound reports an unknown resource.
func NotFound(resource, id string) *AppError {
	e := New(KindNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict reports a resource that already exists.
func Conflict(resource, id string) *AppError {
	return New(KindConflict, fmt.Sprintf("A %s with id %q already exists.", resource, id), http.StatusConflict).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// --- upstream ---

// Upstream reports a failing external collaborator.
func Upstream(service, message string, cause error) *AppError {
	return New(KindUpstream, message, http.StatusInternalServerError).
		WithDetail("service", service).
		WithCause(cause)
}

// StorageWrite reports a blob store rejecting a write.
func StorageWrite(cause error) *AppError {
	return Upstream("storage", "Failed to upload file to storage", cause)
}

// StorageSign reports a presigned URL that could not be issued.
func StorageSign(cause error) *AppError {
	return Upstream("storage", "Failed to generate upload URL", cause)
}

// StorageRead reports a failed blob read.
func StorageRead(cause error) *AppError {
	return Upstream("storage", "Failed to fetch file from storage", cause)
}

// StorageObjectNotFound reports an unknown storage key. The proxy boundary
// answers it with 500 like any other read failure.
func StorageObjectNotFound(key string) *AppError {
	return New(KindNotFound, "The requested file was not found in storage.", http.StatusInternalServerError).
		WithDetail("resource", "file").
		WithDetail("key", key)
}

// TranscriptionFailed wraps a speech-to-text engine failure.
func TranscriptionFailed(statusCode int, message string, cause error) *AppError {
	e := Upstream("transcription", "Transcription failed", cause).
		WithDetail("details", message)
	if statusCode > 0 {
		e.WithDetail("statusCode", statusCode)
	}
	return e
}

// --- internal ---

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(KindInternal, "An unexpected error occurred.", http.StatusInternalServerError).WithCause(cause)
}

// DatabaseError wraps a repository failure.
func DatabaseError(cause error) *AppError {
	return New(KindInternal, "A storage error occurred while accessing meetings.", http.StatusInternalServerError).WithCause(cause)
}

func displayType(declared, detected string) string {
	switch {
	case declared != "" && detected != "" && declared != detected:
		return declared + ", detected " + detected
	case declared != "":
		return declared
	case detected != "":
		return detected
	default:
		return "unknown"
	}
}
