package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/codyseavey/card-lookup/internal/metrics"
)

const (
	// DefaultScratchDir is where downloaded images are cached.
	DefaultScratchDir = "./temp"
	// DefaultImageRetention is the age after which cached images are pruned.
	DefaultImageRetention = 24 * time.Hour

	keepFile = ".gitkeep"
)

// ErrInvalidFileName is returned when a destination name sanitizes to nothing.
var ErrInvalidFileName = errors.New("invalid destination file name")

// HTTPStatusError reports a download that returned a client or server error.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFileName maps name onto [A-Za-z0-9_.-], replacing every other
// character with '_'. Names made only of dots are replaced entirely so the
// result can never point at the directory itself or its parent.
func SanitizeFileName(name string) (string, error) {
	safe := unsafeFileChars.ReplaceAllString(name, "_")
	if safe == "" {
		return "", ErrInvalidFileName
	}
	if strings.Trim(safe, ".") == "" {
		safe = strings.Repeat("_", len(safe))
	}
	return safe, nil
}

// ScratchDir returns the image cache directory.
func (s *Store) ScratchDir() string {
	return s.scratchDir
}

// EnsureScratchDir creates the scratch directory if it does not exist.
func (s *Store) EnsureScratchDir() error {
	if err := os.MkdirAll(s.scratchDir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// FetchAndCacheImage downloads sourceURL into the scratch directory under the
// sanitized destName and returns the local path. An existing file with that
// name is overwritten. Old files are pruned first on a best-effort basis.
func (s *Store) FetchAndCacheImage(ctx context.Context, sourceURL, destName string) (string, error) {
	if err := s.EnsureScratchDir(); err != nil {
		return "", err
	}
	s.Prune(ctx)

	safeName, err := SanitizeFileName(destName)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.scratchDir, safeName)

	if s.binaries == nil {
		return "", errors.New("no image provider configured")
	}

	status, body, err := s.binaries.FetchBinary(ctx, sourceURL)
	if err != nil {
		metrics.ImageDownloadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	if status >= 400 {
		metrics.ImageDownloadsTotal.WithLabelValues("http_error").Inc()
		return "", &HTTPStatusError{StatusCode: status, URL: sourceURL}
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		metrics.ImageDownloadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	metrics.ImageDownloadsTotal.WithLabelValues("success").Inc()
	return path, nil
}

// Prune removes files in the scratch directory older than the retention
// window and returns how many were removed. Failures are ignored; the next
// call simply tries again.
func (s *Store) Prune(ctx context.Context) int {
	if err := s.EnsureScratchDir(); err != nil {
		return 0
	}

	files, err := os.ReadDir(s.scratchDir)
	if err != nil {
		return 0
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		if f.IsDir() || f.Name() == keepFile {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.scratchDir, f.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		metrics.ImagesPrunedTotal.Add(float64(removed))
	}
	return removed
}
