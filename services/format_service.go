package services

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMimeType is forwarded to the engine when nothing better is known.
const DefaultMimeType = "application/octet-stream"

// supportedMimeTypes are the declared types the transcription engine accepts.
var supportedMimeTypes = map[string]bool{
	"audio/mpeg":     true,
	"audio/mp3":      true,
	"audio/mpga":     true,
	"audio/mp4":      true,
	"audio/m4a":      true,
	"audio/x-m4a":    true,
	"audio/wav":      true,
	"audio/x-wav":    true,
	"audio/wave":     true,
	"audio/vnd.wave": true,
	"audio/webm":     true,
	"audio/ogg":      true,
	"audio/flac":     true,
	"audio/x-flac":   true,
	"video/mp4":      true,
	"video/mpeg":     true,
	"video/webm":     true,
}

// extensionMimeTypes doubles as the extension allow-list.
var extensionMimeTypes = map[string]string{
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpga": "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

// IsSupportedFormat accepts a recognized declared type, otherwise falls back
// to the filename extension. It never panics; undeterminable input is false.
func IsSupportedFormat(declaredMimeType, filename string) bool {
	if mt := normalizeMimeType(declaredMimeType); mt != "" && supportedMimeTypes[mt] {
		return true
	}
	_, ok := extensionMimeTypes[extension(filename)]
	return ok
}

// GetMimeTypeFromExtension returns a best-effort type label for filename.
func GetMimeTypeFromExtension(filename string) (string, bool) {
	mt, ok := extensionMimeTypes[extension(filename)]
	return mt, ok
}

// ExtensionForMimeType is the inverse lookup, used to give engines that infer
// the type from the filename a consistent extension.
func ExtensionForMimeType(mimeType string) (string, bool) {
	mt := normalizeMimeType(mimeType)
	switch mt {
	case "audio/mpeg", "audio/mp3", "audio/mpga":
		return ".mp3", true
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a", true
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ".wav", true
	case "audio/webm", "video/webm":
		return ".webm", true
	case "audio/ogg":
		return ".ogg", true
	case "audio/flac", "audio/x-flac":
		return ".flac", true
	case "video/mp4":
		return ".mp4", true
	case "video/mpeg":
		return ".mpeg", true
	}
	return "", false
}

// DetectMimeType sniffs the content of the file at path. It returns "" when
// the file cannot be read.
func DetectMimeType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return normalizeMimeType(mt.String())
}

// ResolveMimeType picks the non-empty type forwarded to the engine: the
// declared type, else the extension's, else a sniffed audio/video type, else
// DefaultMimeType.
func ResolveMimeType(declared, filename, detected string) string {
	if mt := normalizeMimeType(declared); mt != "" {
		return mt
	}
	if mt, ok := GetMimeTypeFromExtension(filename); ok {
		return mt
	}
	if detected != "" && (strings.HasPrefix(detected, "audio/") || strings.HasPrefix(detected, "video/")) {
		return detected
	}
	return DefaultMimeType
}

func normalizeMimeType(mt string) string {
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(mt)
	}
	return parsed
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}
