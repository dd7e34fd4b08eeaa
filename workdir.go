package tex2pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	workDirPerm      = 0o750
	workDirAttempts  = 8
	workDirTokenSize = 12
)

// workDirSeq makes names unique within the process even if the random
// source were to repeat.
var workDirSeq atomic.Uint64

// WorkDir is a private directory holding one compilation unit.
type WorkDir struct {
	path string
	name string
}

// CreateWorkDir creates base (and its parents) and a new, uniquely named
// directory inside it. The leaf is created with os.Mkdir so an existing
// directory is never reused.
func CreateWorkDir(base string) (*WorkDir, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrWorkDir)
	}
	if err := os.MkdirAll(base, workDirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating base %s: %w", ErrWorkDir, base, err)
	}

	var lastErr error
	for range workDirAttempts {
		name := newWorkDirName()
		path := filepath.Join(base, name)
		err := os.Mkdir(path, workDirPerm)
		if err == nil {
			return &WorkDir{path: path, name: name}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %w", ErrWorkDir, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: no free name after %d attempts: %w", ErrWorkDir, workDirAttempts, lastErr)
}

// newWorkDirName returns "<pid>-<seq>-<random>". The pid separates
// processes sharing a base, the counter separates goroutines, and the
// random token covers pid reuse across restarts.
func newWorkDirName() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:workDirTokenSize]
	return fmt.Sprintf("%d-%d-%s", os.Getpid(), workDirSeq.Add(1), token)
}

// Path returns the absolute or base-relative directory path.
func (w *WorkDir) Path() string { return w.path }

// Name returns the unique leaf name; it doubles as the build id in logs.
func (w *WorkDir) Name() string { return w.name }

// File returns the path of name inside the directory.
func (w *WorkDir) File(name string) string {
	return filepath.Join(w.path, name)
}

// Destroy removes the directory tree. Removing a directory that is already
// gone is not an error, so Destroy may be called any number of times.
func (w *WorkDir) Destroy() error {
	if w == nil || w.path == "" {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("%w: removing %s: %w", ErrWorkDir, w.path, err)
	}
	return nil
}
