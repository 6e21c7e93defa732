package tablefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staged is a fully written temporary file waiting to be renamed onto its
// destination. Exactly one of Commit or Discard takes effect; calling
// Discard after Commit is a no-op, so it can be deferred.
type Staged struct {
	path string
	tmp  string
	done bool
}

// Path returns the destination the staged file will be moved to.
func (s *Staged) Path() string { return s.path }

// Commit renames the staged file onto its destination.
func (s *Staged) Commit() error {
	if s.done {
		return fmt.Errorf("staged file for %s already finished", s.path)
	}
	s.done = true
	if err := os.Rename(s.tmp, s.path); err != nil {
		_ = os.Remove(s.tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Discard removes the staged file, leaving the destination untouched.
func (s *Staged) Discard() {
	if s == nil || s.done {
		return
	}
	s.done = true
	_ = os.Remove(s.tmp)
}

// Stage writes to a temporary file in path's directory and returns it
// without touching path. On error nothing is left behind.
func Stage(path string, write func(w io.Writer) error) (*Staged, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (*Staged, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, err
	}

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := write(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return &Staged{path: path, tmp: tmpName}, nil
}

// WriteAtomic creates path by writing to a temporary file in the same
// directory and renaming it into place once write succeeds. On any error the
// previous content of path, if any, is left untouched.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	staged, err := Stage(path, write)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
