package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"meetscribe/apperrors"
)

// TempArtifactPrefix marks files owned by in-flight requests.
const TempArtifactPrefix = "ingest-"

// WithTempArtifact copies src into a new file under dir and runs fn with its
// path. The file is removed when WithTempArtifact returns, whatever fn does,
// including panics. Copying more than limit bytes fails with PayloadTooLarge.
// Removal failures are logged and never replace fn's result.
func WithTempArtifact(ctx context.Context, dir, filename string, src io.Reader, limit int64, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, TempArtifactPrefix+"*"+tempSuffix(filename))
	if err != nil {
		return apperrors.Internal(err)
	}
	path := f.Name()
	defer releaseTempArtifact(ctx, path)

	reader := src
	if limit > 0 {
		reader = io.LimitReader(src, limit+1)
	}
	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	if copyErr != nil {
		return apperrors.Internal(copyErr)
	}
	if closeErr != nil {
		return apperrors.Internal(closeErr)
	}
	if limit > 0 && n > limit {
		return apperrors.PayloadTooLarge(0, limit)
	}

	log.Ctx(ctx).Debug().Str("path", path).Int64("bytes", n).Msg("temp artifact created")
	return fn(path)
}

func releaseTempArtifact(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove temp artifact")
	}
}

func tempSuffix(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	return ext
}
