// Package covers stores uploaded book cover images on local disk.
package covers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("cover image is too large")
	ErrUnsupportedType = errors.New("cover image must be JPEG, PNG or GIF")
	ErrInvalidName     = errors.New("invalid cover file name")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

var validName = regexp.MustCompile(`^[0-9a-f-]{36}\.(jpg|png|gif)$`)

// Store saves covers under a single directory using random file names.
type Store struct {
	dir     string
	maxSize int64
}

// NewStore creates the directory if needed.
func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Save copies an uploaded image to disk and returns its file name.
// The type is sniffed from the content, not taken from the client.
func (s *Store) Save(r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read cover: %w", err)
	}
	head = head[:n]

	ext, ok := extensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.maxSize > 0 {
		body = io.LimitReader(body, s.maxSize+1)
	}
	written, err := io.Copy(tmpFile, body)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		return "", ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a stored cover. Missing files are ignored.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path resolves a stored file name to its location on disk.
func (s *Store) Path(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Dir returns the covers directory.
func (s *Store) Dir() string {
	return s.dir
}
