package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrImageNotFound is returned when a stored receipt image does not exist
var ErrImageNotFound = errors.New("image not found")

// Storage defines the interface for receipt image storage
type Storage interface {
	// Save stores an image and returns the name it can be fetched by
	Save(name string, data []byte) (string, error)

	// Get retrieves an image by name
	Get(name string) ([]byte, error)

	// Delete removes an image
	Delete(name string) error
}

// LocalStorage implements the Storage interface on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path keeps names inside basePath
func (l *LocalStorage) path(name string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + name))
	if clean == "/" || clean == "." || clean != name {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Save writes an image to disk
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	path, err := l.path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get reads an image from disk
func (l *LocalStorage) Get(name string) ([]byte, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageNotFound, err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an image from disk
func (l *LocalStorage) Delete(name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	repeatedDashes  = regexp.MustCompile(`-{2,}`)
	imageExt        = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// imageName builds a storage name from an id and the uploaded filename.
// Phones produce long names full of spaces and symbols; only a short safe
// stem and the extension are kept.
func imageName(id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExt.MatchString(ext) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = unsafeNameChars.ReplaceAllString(strings.TrimSpace(base), "-")
	base = strings.Trim(repeatedDashes.ReplaceAllString(base, "-"), "-")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return id + "_" + base + ext
}
