// Package staging materializes an uploaded audio stream as a uniquely
// named temporary file so file-path based engines can read it. A staged
// payload is owned by exactly one request and must be released on every
// exit path of that request.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Payload is the on-disk copy of one uploaded audio stream.
type Payload struct {
	path     string
	released atomic.Bool
}

// Stage writes the full contents of r to a uniquely named file under
// dir (os.TempDir when empty), keeping the original file extension so
// engines can sniff the container format. The file is fully written
// before Stage returns; a partial write removes the file and fails.
func Stage(dir, filename string, r io.Reader) (*Payload, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	name := "stt-" + uuid.New().String() + filepath.Ext(filename)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to flush staging file: %w", err)
	}

	return &Payload{path: path}, nil
}

// Path returns the location of the staged file.
func (p *Payload) Path() string {
	return p.path
}

// Release deletes the staged file. It is idempotent and tolerates the
// file already being gone, so it is safe to defer unconditionally.
func (p *Payload) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
