package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

const (
	MaxThumbnailWidth = 1280
	ThumbnailQuality  = 80
)

// ProcessThumbnail decodes an uploaded image and re-encodes it as webp
func ProcessThumbnail(file *multipart.FileHeader) (*bytes.Buffer, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	return EncodeThumbnail(src)
}

// EncodeThumbnail shrinks images wider than MaxThumbnailWidth and encodes them as webp
func EncodeThumbnail(r io.Reader) (*bytes.Buffer, string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("could not decode image: %w", err)
	}

	img = fitWidth(img, MaxThumbnailWidth)

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: ThumbnailQuality}); err != nil {
		return nil, "", fmt.Errorf("could not encode image: %w", err)
	}

	return buf, "image/webp", nil
}

func fitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
