package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"meetscribe/apperrors"
	"meetscribe/models"
)

// PresignExpiry is the lifetime of a presigned upload URL.
const PresignExpiry = 300 * time.Second

// StorageGateway issues uploads into the blob store and reads them back.
// Both upload paths key objects as {uniqueId}-{filename}.
type StorageGateway struct {
	store          ObjectStorage
	maxUploadBytes int64
	newID          func() string
}

func NewStorageGateway(store ObjectStorage, maxUploadBytes int64) *StorageGateway {
	return &StorageGateway{
		store:          store,
		maxUploadBytes: maxUploadBytes,
		newID:          func() string { return uuid.NewString() },
	}
}

// NewSession allocates a unique object key for filename.
func (g *StorageGateway) NewSession(filename, mimeType string, size int64) models.UploadSession {
	id := g.newID()
	return models.UploadSession{
		UniqueID:         id,
		ObjectKey:        id + "-" + sanitizeFilename(filename),
		OriginalFilename: filename,
		DeclaredMimeType: mimeType,
		SizeBytes:        size,
	}
}

// DirectUpload decodes base64 content (raw or a data: URL) and writes it to
// the store with public-read access.
func (g *StorageGateway) DirectUpload(ctx context.Context, req models.DirectUploadRequest) (*models.DirectUploadResponse, error) {
	if strings.TrimSpace(req.File) == "" {
		return nil, apperrors.MissingField("file")
	}
	if strings.TrimSpace(req.OriginalFilename) == "" {
		return nil, apperrors.MissingField("originalFilename")
	}
	if g.maxUploadBytes > 0 && req.Size > g.maxUploadBytes {
		return nil, apperrors.PayloadTooLarge(req.Size, g.maxUploadBytes)
	}

	payload, dataURLType := splitDataURL(req.File)
	data, err := decodeBase64(payload)
	if err != nil {
		return nil, apperrors.Validation("File content is not valid base64").WithCause(err)
	}
	if g.maxUploadBytes > 0 && int64(len(data)) > g.maxUploadBytes {
		return nil, apperrors.PayloadTooLarge(int64(len(data)), g.maxUploadBytes)
	}

	declared := req.MimeType
	if declared == "" {
		declared = dataURLType
	}
	session := g.NewSession(req.OriginalFilename, declared, int64(len(data)))
	contentType := ResolveMimeType(declared, req.OriginalFilename, "")

	if err := g.store.PutObject(ctx, session.ObjectKey, bytes.NewReader(data), session.SizeBytes, contentType); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("key", session.ObjectKey).Msg("direct upload failed")
		return nil, apperrors.StorageWrite(err)
	}

	log.Ctx(ctx).Info().
		Str("key", session.ObjectKey).
		Int64("size", session.SizeBytes).
		Str("content_type", contentType).
		Msg("file uploaded")
	return &models.DirectUploadResponse{URL: g.store.ObjectURL(session.ObjectKey)}, nil
}

// PresignUpload returns a short-lived URL for a client-side PUT plus the URL
// the object will be readable at afterwards.
func (g *StorageGateway) PresignUpload(ctx context.Context, filename, mimeType string) (*models.PresignResponse, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, apperrors.MissingField("filename")
	}
	if strings.TrimSpace(mimeType) == "" {
		return nil, apperrors.MissingField("mimetype")
	}

	session := g.NewSession(filename, mimeType, -1)
	uploadURL, err := g.store.PresignPutObject(ctx, session.ObjectKey, mimeType, PresignExpiry)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("key", session.ObjectKey).Msg("presign failed")
		return nil, apperrors.StorageSign(err)
	}

	return &models.PresignResponse{
		UploadURL: uploadURL,
		FileURL:   g.store.ObjectURL(session.ObjectKey),
	}, nil
}

// ProxyRead fetches the object behind a previously issued retrieval URL.
// The caller closes the returned body.
func (g *StorageGateway) ProxyRead(ctx context.Context, fileURL string) (*models.StoredObject, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, apperrors.MissingField("fileUrl")
	}
	key, err := g.KeyFromURL(fileURL)
	if err != nil {
		return nil, apperrors.Validation("Invalid fileUrl").WithDetail("fileUrl", fileURL).WithCause(err)
	}

	obj, err := g.store.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, apperrors.StorageObjectNotFound(key).WithCause(err)
		}
		log.Ctx(ctx).Error().Err(err).Str("key", key).Msg("storage read failed")
		return nil, apperrors.StorageRead(err)
	}
	return obj, nil
}

// KeyFromURL extracts the object key from a retrieval URL by dropping the
// leading bucket segment of its path.
func (g *StorageGateway) KeyFromURL(fileURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(fileURL))
	if err != nil {
		return "", err
	}
	p := strings.TrimPrefix(u.Path, "/")
	if bucket := g.store.Bucket(); bucket != "" {
		if p == bucket {
			p = ""
		} else {
			p = strings.TrimPrefix(p, bucket+"/")
		}
	}
	if p == "" {
		return "", errors.New("url has no object key")
	}
	return p, nil
}

// OriginalFilename recovers the uploaded filename from an object key.
func OriginalFilename(key string) string {
	base := path.Base(key)
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

func splitDataURL(s string) (payload, mimeType string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	header, body, ok := strings.Cut(s, ",")
	if !ok {
		return s, ""
	}
	meta := strings.TrimPrefix(header, "data:")
	meta = strings.TrimSuffix(meta, ";base64")
	if i := strings.Index(meta, ";"); i >= 0 {
		meta = meta[:i]
	}
	return body, meta
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}
