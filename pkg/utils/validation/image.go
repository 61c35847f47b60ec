// pkg/utils/validation/image.go
package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("thumbnail size exceeds limit of 5MB")
	ErrFileType     = errors.New("invalid thumbnail type. Allowed types: JPG, PNG, WEBP")
	ErrFileRequired = errors.New("no file provided")
)

const MaxThumbnailSize = 5 * 1024 * 1024 // 5MB

var AllowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func ValidateThumbnail(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}
	if file.Size > MaxThumbnailSize {
		return ErrFileSize
	}
	ext := filepath.Ext(strings.ToLower(file.Filename))
	if !AllowedImageTypes[ext] {
		return ErrFileType
	}
	return nil
}
