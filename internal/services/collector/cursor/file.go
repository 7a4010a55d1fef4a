package cursor

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"ngmeta/internal/adapters/blob"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"
)

// File keeps the cursor document in a local file
// a missing file reads as the epoch
type File struct{ path string }

// NewFile returns a cursor stored at path
func NewFile(path string) *File { return &File{path: path} }

// Path is the backing file
func (f *File) Path() string { return f.path }

// Load reads and decodes the file
func (f *File) Load(context.Context) (domain.Position, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Min(), nil
	}
	if err != nil {
		return domain.Position{}, perr.Wrapf(err, perr.ErrorCodeStorage, "read cursor %s", f.path)
	}
	return Decode(b)
}

// Save writes a temp file and renames it over the cursor
func (f *File) Save(_ context.Context, p domain.Position) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	if err := blob.WriteFileAtomic(f.path, b); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "write cursor %s", f.path)
	}
	return nil
}
