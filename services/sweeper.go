package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// TempSweeper removes temp artifacts left behind by a crashed process.
// Request-scoped cleanup handles every other exit path.
type TempSweeper struct {
	dir    string
	maxAge time.Duration
	clock  Clock
}

func NewTempSweeper(dir string, maxAge time.Duration, clock Clock) *TempSweeper {
	return &TempSweeper{dir: dir, maxAge: maxAge, clock: clockOrDefault(clock)}
}

// Sweep deletes artifacts older than the configured age and reports how many
// were removed.
func (s *TempSweeper) Sweep(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, TempArtifactPrefix+"*"))
	if err != nil {
		return 0, err
	}

	cutoff := s.clock.Now().Add(-s.maxAge)
	removed := 0
	for _, path := range matches {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove stale artifact")
			continue
		}
		removed++
	}
	return removed, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *TempSweeper) Run(ctx context.Context, interval time.Duration) {
	logger := log.Ctx(ctx)
	sweep := func() {
		n, err := s.Sweep(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweep failed")
			return
		}
		if n > 0 {
			logger.Info().Int("removed", n).Msg("stale temp artifacts removed")
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
