package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sweeper periodically removes stale analyzer temp files that a crashed or
// killed process left behind.
type Sweeper struct {
	dir      string
	pattern  string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewSweeper creates a sweeper for files in dir matching the glob pattern
func NewSweeper(dir, pattern string, interval, maxAge time.Duration) *Sweeper {
	if dir == "" {
		dir = os.TempDir()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}

	return &Sweeper{
		dir:      dir,
		pattern:  pattern,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Wait blocks until the loop started by Start has returned
func (s *Sweeper) Wait() {
	<-s.done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	slog.Info("temp sweeper started", "dir", s.dir, "interval", s.interval, "max_age", s.maxAge)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("temp sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("failed to sweep temp files", "error", err, "dir", s.dir)
		return
	}
	if removed > 0 {
		slog.Info("stale temp files removed", "count", removed)
	}
}

// Sweep removes matching files older than maxAge and returns how many were
// removed. Files that vanish concurrently are ignored.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to glob temp files: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0

	for _, path := range matches {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}

		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove stale temp file", "path", path, "error", err)
			}
			continue
		}
		slog.Debug("stale temp file removed", "path", path, "modified_at", info.ModTime())
		removed++
	}

	return removed, nil
}
