package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PhotoStore writes contact photos to the local filesystem, keyed by the
// contact id plus the uploaded file's extension.
type PhotoStore struct {
	dir string
}

func NewPhotoStore(dir string) (*PhotoStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure photo dir %s: %w", abs, err)
	}
	return &PhotoStore{dir: abs}, nil
}

// PhotoKey derives the stored filename from the contact id and the original
// upload name. Uploads without an extension default to .png.
func PhotoKey(contactID, originalName string) string {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".png"
	}
	return contactID + strings.ToLower(ext)
}

// Write stores bytes under key and returns the serving path for the photo.
func (p *PhotoStore) Write(key string, data []byte) (string, error) {
	if !validPhotoKey(key) {
		return "", fmt.Errorf("invalid photo key %q", key)
	}
	if err := os.WriteFile(filepath.Join(p.dir, key), data, 0o644); err != nil {
		return "", err
	}
	return "/contacts/image/" + key, nil
}

// Read returns the stored bytes for key.
func (p *PhotoStore) Read(key string) ([]byte, error) {
	if !validPhotoKey(key) {
		return nil, fmt.Errorf("invalid photo key %q", key)
	}
	return os.ReadFile(filepath.Join(p.dir, key))
}

// validPhotoKey rejects anything that could escape the photo directory.
func validPhotoKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return key == filepath.Base(key)
}
