package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vidshare_backend/pkg/utils/validation"
)

var (
	ErrFileNotFound = errors.New("video file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// LocalStorage keeps uploaded videos on disk. Lookups walk a search path so
// files written by older layouts (uploads/ and the working dir) still resolve.
type LocalStorage struct {
	Root        string
	SearchPaths []string
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{
		Root: root,
		SearchPaths: []string{
			filepath.Join(root, "videos"),
			root,
			".",
		},
	}
}

func (s *LocalStorage) VideoDir() string {
	return filepath.Join(s.Root, "videos")
}

// NewVideoName builds a unique file name keeping the original extension
func (s *LocalStorage) NewVideoName(original string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(original))
}

// Save copies an uploaded file into the video directory
func (s *LocalStorage) Save(file *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(s.VideoDir(), 0o755); err != nil {
		return "", fmt.Errorf("could not create upload dir: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("could not open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(s.VideoDir(), name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("could not write file: %w", err)
	}
	return path, nil
}

// Resolve finds name on the search path
func (s *LocalStorage) Resolve(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", ErrInvalidName
	}

	for _, dir := range s.SearchPaths {
		path := filepath.Join(dir, clean)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrFileNotFound
}

// OpenVerified resolves and opens a video, checking the container signature
// for its extension. The returned file is positioned at the start.
func (s *LocalStorage) OpenVerified(name string) (*os.File, os.FileInfo, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	if err := validation.SniffVideo(f, name); err != nil {
		f.Close()
		return nil, nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, info, nil
}

func (s *LocalStorage) Remove(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
