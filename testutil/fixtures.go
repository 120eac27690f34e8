// Package testutil holds mocks and fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"meetscribe/models"
)

// WAVBytes returns a valid mono 16-bit PCM WAV file with dataLen bytes of
// silence.
func WAVBytes(dataLen int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint32(32000))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// HelloWorldTranscript is the canned engine result used across tests.
func HelloWorldTranscript() *models.TranscriptResult {
	return &models.TranscriptResult{
		Text: "hello world",
		Segments: []models.Segment{
			{Start: 0, End: 5.2, Text: "hello"},
			{Start: 5.2, End: 12.4, Text: "world"},
		},
		Language: "en",
		Duration: 12.4,
	}
}

// FilePart describes one file field of a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// MultipartBody encodes files and plain fields, returning the body and its
// Content-Type header.
func MultipartBody(t testing.TB, files []FilePart, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Filename+`"`)
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.Data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

// MultipartForm parses a body built by MultipartBody into a form.
func MultipartForm(t testing.TB, files []FilePart, fields map[string]string) *multipart.Form {
	t.Helper()
	body, contentType := MultipartBody(t, files, fields)
	boundary := contentType[len("multipart/form-data; boundary="):]
	form, err := multipart.NewReader(body, boundary).ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

// FixedClock always reports T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
