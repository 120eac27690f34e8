package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_UpstreamIsRetryable(t *testing.T) {
	err := New(KindUpstream, "boom", http.StatusInternalServerError)
	if !err.Retryable {
		t.Error("upstream errors should be retryable")
	}
	if New(KindValidation, "bad", http.StatusBadRequest).Retryable {
		t.Error("validation errors should not be retryable")
	}
}

func TestMissingFile_ListsReceivedFields(t *testing.T) {
	err := MissingFile([]string{"file", "audio"}, []string{"document", "title"})
	if err.Kind != KindValidation {
		t.Errorf("expected %s, got %s", KindValidation, err.Kind)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.HTTPStatus)
	}
	received, ok := err.Details["receivedFields"].([]string)
	if !ok || len(received) != 2 || received[0] != "document" {
		t.Errorf("unexpected receivedFields: %v", err.Details["receivedFields"])
	}
}

func TestUnsupportedFormat_NamesFileAndType(t *testing.T) {
	err := UnsupportedFormat("report.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip")
	if !strings.Contains(err.Message, "report.xlsx") {
		t.Errorf("message should name the file: %q", err.Message)
	}
	if !strings.Contains(err.Message, "detected application/zip") {
		t.Errorf("message should name the detected type: %q", err.Message)
	}
	if err.Details["declaredType"] == nil || err.Details["detectedType"] == nil {
		t.Errorf("expected declared and detected types in details: %v", err.Details)
	}
}

func TestUnsupportedFormat_UnknownType(t *testing.T) {
	err := UnsupportedFormat("blob", "", "")
	if !strings.Contains(err.Message, "unknown") {
		t.Errorf("expected unknown type in message, got %q", err.Message)
	}
}

func TestPayloadTooLarge_Status(t *testing.T) {
	err := PayloadTooLarge(30, 10)
	if err.HTTPStatus != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", err.HTTPStatus)
	}
	if err.Details["limit"] != int64(10) {
		t.Errorf("expected limit detail, got %v", err.Details["limit"])
	}
}

func TestConflict_Status(t *testing.T) {
	err := Conflict("meeting", "m-1")
	if err.HTTPStatus != http.StatusConflict || err.Kind != KindConflict {
		t.Errorf("unexpected conflict error: %+v", err)
	}
}

func TestStorageObjectNotFound_AnsweredAs500(t *testing.T) {
	err := StorageObjectNotFound("abc-file.wav")
	if err.Kind != KindNotFound {
		t.Errorf("expected NOT_FOUND kind, got %s", err.Kind)
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.HTTPStatus)
	}
}

func TestTranscriptionFailed_CarriesStatus(t *testing.T) {
	cause := fmt.Errorf("rate limited")
	err := TranscriptionFailed(429, "slow down", cause)
	if err.Kind != KindUpstream {
		t.Errorf("expected upstream kind, got %s", err.Kind)
	}
	if err.Details["statusCode"] != 429 {
		t.Errorf("expected statusCode 429, got %v", err.Details["statusCode"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}
}

func TestFrom_WrapsUnknownAsInternal(t *testing.T) {
	err := From(fmt.Errorf("kaboom"))
	if err.Kind != KindInternal || err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("unexpected mapping: %+v", err)
	}
}

func TestFrom_FindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("controller: %w", NotFound("meeting", "m-9"))
	err := From(wrapped)
	if err.Kind != KindNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Kind)
	}
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should see through wrapping")
	}
}

func TestToResponse(t *testing.T) {
	resp := Validation("nope").WithDetail("field", "title").ToResponse()
	if resp.Success {
		t.Error("error responses must not report success")
	}
	if resp.Error.Kind != KindValidation || resp.Error.Message != "nope" {
		t.Errorf("unexpected body: %+v", resp.Error)
	}
	if resp.Error.Details["field"] != "title" {
		t.Errorf("expected field detail, got %v", resp.Error.Details)
	}
}
