package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/licaudit/internal/checksum"
	"github.com/starford/licaudit/internal/models"
)

const (
	tmpPrefix = ".licaudit-tmp-"
	filePerm  = 0o644
	dirPerm   = 0o755
)

// FS is a Provider over one project directory on the local disk.
type FS struct {
	root string
}

// NewFS opens the existing directory root.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute project directory.
func (f *FS) Root() string { return f.root }

// IsDataFile reports whether name has an extension the loader understands.
// In-flight temp files never count.
func IsDataFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, tmpPrefix) {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// resolve maps a slash-separated project path to an absolute one. Paths that
// are absolute or climb out of the root are rejected.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("storage: path outside project: %s", rel)
	}
	return filepath.Join(f.root, local), nil
}

// List returns metadata for the data files directly inside dir, sorted by
// path. A missing dir is empty.
func (f *FS) List(dir string) ([]models.FileMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}

	out := make([]models.FileMetadata, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsDataFile(e.Name()) {
			continue
		}
		meta, err := f.describe(filepath.Join(base, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *FS) describe(abs string) (models.FileMetadata, error) {
	file, err := os.Open(abs)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("storage: open: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("storage: stat: %w", err)
	}
	sum, _, err := checksum.Reader(file)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("storage: checksum: %w", err)
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return models.FileMetadata{}, err
	}
	return models.FileMetadata{
		Path:      filepath.ToSlash(rel),
		Checksum:  sum,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the content of a project file. A missing file wraps
// os.ErrNotExist.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces path with content. Readers and the watcher see either the
// old or the new file, never a partial one.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: cannot write the project root")
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return replaceFile(abs, content)
}

func replaceFile(abs string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Delete removes a project file.
func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames oldPath to newPath, replacing newPath if it exists.
func (f *FS) Move(oldPath, newPath string) error {
	from, err := f.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := f.resolve(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), dirPerm); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, err)
	}
	return nil
}
