package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meetscribe/apperrors"
	"meetscribe/services"
	"meetscribe/testutil"
)

func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, services.TempArtifactPrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestWithTempArtifact_RemovedOnSuccess(t *testing.T) {
	dir := t.TempDir()
	var seen string

	err := services.WithTempArtifact(context.Background(), dir, "meeting.wav", strings.NewReader("audio"), 1024, func(path string) error {
		seen = path
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "audio" {
			t.Errorf("artifact content %q, %v", data, err)
		}
		if filepath.Ext(path) != ".wav" {
			t.Errorf("expected .wav suffix, got %q", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTempArtifact: %v", err)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("artifact %s still exists", seen)
	}
}

func TestWithTempArtifact_RemovedOnError(t *testing.T) {
	dir := t.TempDir()
	want := errors.New("engine down")

	err := services.WithTempArtifact(context.Background(), dir, "a.wav", strings.NewReader("x"), 0, func(string) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected fn error returned, got %v", err)
	}
	if left := artifacts(t, dir); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
}

func TestWithTempArtifact_RemovedOnPanic(t *testing.T) {
	dir := t.TempDir()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = services.WithTempArtifact(context.Background(), dir, "a.wav", strings.NewReader("x"), 0, func(string) error {
			panic("boom")
		})
	}()

	if left := artifacts(t, dir); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
}

func TestWithTempArtifact_TooLarge(t *testing.T) {
	dir := t.TempDir()
	called := false

	err := services.WithTempArtifact(context.Background(), dir, "a.wav", strings.NewReader("0123456789"), 5, func(string) error {
		called = true
		return nil
	})
	appErr, ok := apperrors.As(err)
	if !ok || appErr.HTTPStatus != 413 {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
	if called {
		t.Error("fn must not run for an oversized file")
	}
	if left := artifacts(t, dir); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
}

func TestWithTempArtifact_FnRemovesFileItself(t *testing.T) {
	dir := t.TempDir()

	err := services.WithTempArtifact(context.Background(), dir, "a.wav", strings.NewReader("x"), 0, func(path string) error {
		return os.Remove(path)
	})
	if err != nil {
		t.Fatalf("missing artifact at release must not fail the call: %v", err)
	}
}

func TestTempSweeper(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	stale := filepath.Join(dir, services.TempArtifactPrefix+"old.wav")
	fresh := filepath.Join(dir, services.TempArtifactPrefix+"new.wav")
	other := filepath.Join(dir, "keep-me.wav")
	for _, p := range []string{stale, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	old := now.Add(-2 * time.Hour)
	for _, p := range []string{stale, other} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Chtimes(fresh, now, now); err != nil {
		t.Fatal(err)
	}

	sweeper := services.NewTempSweeper(dir, time.Hour, testutil.FixedClock{T: now})
	removed, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact should be gone")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should remain: %v", p, err)
		}
	}
}

func TestTempSweeper_RunStopsOnCancel(t *testing.T) {
	sweeper := services.NewTempSweeper(t.TempDir(), time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
