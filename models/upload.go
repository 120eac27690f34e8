package models

import "io"

// UploadSession describes one in-flight file transfer. It is never persisted.
type UploadSession struct {
	UniqueID         string
	ObjectKey        string
	OriginalFilename string
	DeclaredMimeType string
	SizeBytes        int64
}

type PresignRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
}

// DirectUploadRequest carries base64 file content (raw or as a data: URL).
type DirectUploadRequest struct {
	File             string `json:"file"`
	OriginalFilename string `json:"originalFilename"`
	MimeType         string `json:"mimetype"`
	Size             int64  `json:"size"`
}

type DirectUploadResponse struct {
	URL string `json:"url"`
}

// StagedFile references an object already uploaded through the storage
// gateway, to be transcribed without re-sending its bytes.
type StagedFile struct {
	FileURL  string `json:"fileUrl"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// StoredObject is a blob fetched from storage. The caller closes Body.
type StoredObject struct {
	Key           string
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}
