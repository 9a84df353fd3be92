package scratch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const jobPrefix = "job-"

// Workspace is the process-wide scratch root. Every conversion runs in its
// own job directory beneath it.
type Workspace struct {
	dir string
}

func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace dir is empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	return &Workspace{dir: abs}, nil
}

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) NewJob() (*Job, error) {
	dir, err := os.MkdirTemp(w.dir, jobPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	return &Job{dir: dir}, nil
}

// Sweep removes job directories last modified before now-maxAge.
func (w *Workspace) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read workspace: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), jobPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// StartSweeper sweeps once immediately and then every interval until ctx is done.
func (w *Workspace) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	sweep := func(now time.Time) {
		n, err := w.Sweep(now, maxAge)
		if err != nil {
			slog.Warn("sweep workspace", slog.String("error", err.Error()))
		}
		if n > 0 {
			slog.Info("sweep workspace", slog.Int("removed_jobs", n))
		}
	}

	sweep(time.Now())

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweep(now)
			}
		}
	}()
}

type Job struct {
	dir string
}

func (j *Job) Dir() string { return j.dir }

// Write stores r under name atomically and returns the final path and the
// sha256 of the written bytes.
func (j *Job) Write(ctx context.Context, r io.Reader, name string) (string, string, error) {
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	default:
	}

	fullPath, err := j.Path(name)
	if err != nil {
		return "", "", err
	}

	tempPath := fullPath + ".tmp-" + fmt.Sprint(time.Now().UnixNano())
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(tempPath)
	}()

	hasher := sha256.New()
	if _, err := io.Copy(f, io.TeeReader(r, hasher)); err != nil {
		return "", "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		return "", "", fmt.Errorf("rename temp file: %w", err)
	}

	return fullPath, hex.EncodeToString(hasher.Sum(nil)), nil
}

// Path resolves name inside the job directory, rejecting traversal.
func (j *Job) Path(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty filename")
	}

	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}

	return filepath.Join(j.dir, clean), nil
}

func (j *Job) Remove() error {
	if err := os.RemoveAll(j.dir); err != nil {
		return fmt.Errorf("remove job dir %s: %w", j.dir, err)
	}
	return nil
}
