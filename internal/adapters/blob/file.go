package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	perr "ngmeta/internal/platform/errors"
)

// File stores documents under a root directory, one file per key
// Writes go to a temp file in the target directory and are renamed into place
type File struct {
	Addr
	root string
}

// fileMeta is the sidecar written next to each document
type fileMeta struct {
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	SavedAt     time.Time `json:"saved_at"`
}

const metaSuffix = ".meta"

// NewFile roots a store at dir; dir is created when missing
func NewFile(addr Addr, dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "create storage dir %s", dir)
	}
	return &File{Addr: addr, root: dir}, nil
}

func (f *File) path(uri string) (string, error) {
	key, err := f.Key(uri)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Load reads the document file
func (f *File) Load(_ context.Context, uri string) ([]byte, bool, error) {
	p, err := f.path(uri)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "load %s", uri)
	}
	return b, true, nil
}

// Save writes content atomically and refreshes the sidecar
func (f *File) Save(_ context.Context, contentType, uri string, content []byte) error {
	p, err := f.path(uri)
	if err != nil {
		return err
	}
	if err := writeAtomic(p, content); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "save %s", uri)
	}
	meta, _ := json.Marshal(fileMeta{ContentType: contentType, Size: len(content), SavedAt: time.Now().UTC()})
	if err := writeAtomic(p+metaSuffix, meta); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "save %s sidecar", uri)
	}
	return nil
}

// ContentType reads the sidecar for uri; empty when unknown
func (f *File) ContentType(uri string) string {
	p, err := f.path(uri)
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(p + metaSuffix)
	if err != nil {
		return ""
	}
	var m fileMeta
	if json.Unmarshal(b, &m) != nil {
		return ""
	}
	return m.ContentType
}

// List walks the root and returns keys with prefix in sorted order
func (f *File) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.Contains(d.Name(), ".part-") {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
		return nil
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "list %s", prefix)
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes b to a temp file beside path and renames it over path
func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".part-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}

// WriteFileAtomic is writeAtomic for callers outside the package (file cursor)
func WriteFileAtomic(path string, b []byte) error { return writeAtomic(path, b) }
