package validation

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrVideoSize      = errors.New("file size exceeds limit of 500MB")
	ErrVideoType      = errors.New("invalid file type. Allowed types: MP4, MOV, WEBM")
	ErrNotMP4         = errors.New("file does not look like an MP4 container")
	ErrNotWebM        = errors.New("file does not look like a WebM container")
	ErrVideoRequired  = errors.New("no file provided")
	ErrHeaderTooShort = errors.New("file too short to identify")
)

const MaxVideoSize = 500 * 1024 * 1024 // 500MB

// SignatureLength is how many leading bytes SniffVideo needs
const SignatureLength = 12

// EBML magic that opens every Matroska/WebM file
var webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

var AllowedVideoTypes = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// known ftyp major brands
var mp4Brands = map[string]bool{
	"isom": true,
	"iso2": true,
	"iso4": true,
	"iso5": true,
	"iso6": true,
	"mp41": true,
	"mp42": true,
	"avc1": true,
	"M4V ": true,
	"M4A ": true,
	"qt  ": true,
	"dash": true,
	"3gp4": true,
	"3gp5": true,
}

func ValidateVideo(file *multipart.FileHeader) error {
	if file == nil {
		return ErrVideoRequired
	}
	if file.Size > MaxVideoSize {
		return ErrVideoSize
	}
	if !AllowedVideoTypes[filepath.Ext(strings.ToLower(file.Filename))] {
		return ErrVideoType
	}
	return nil
}

// IsMP4Header reports whether the first 12 bytes are an ftyp box with a known brand
func IsMP4Header(header []byte) bool {
	if len(header) < SignatureLength {
		return false
	}
	if !bytes.Equal(header[4:8], []byte("ftyp")) {
		return false
	}
	return mp4Brands[string(header[8:12])]
}

// SniffMP4 reads the leading bytes of r and checks the signature
func SniffMP4(r io.Reader) error {
	header, err := readHeader(r)
	if err != nil {
		return err
	}
	if !IsMP4Header(header) {
		return ErrNotMP4
	}
	return nil
}

func IsWebMHeader(header []byte) bool {
	return len(header) >= len(webmMagic) && bytes.Equal(header[:len(webmMagic)], webmMagic)
}

// SniffVideo checks the container signature expected for filename's
// extension. Every allowed extension has one; anything else is ErrVideoType.
func SniffVideo(r io.Reader, filename string) error {
	switch filepath.Ext(strings.ToLower(filename)) {
	case ".mp4", ".m4v", ".mov":
		return SniffMP4(r)
	case ".webm":
		header, err := readHeader(r)
		if err != nil {
			return err
		}
		if !IsWebMHeader(header) {
			return ErrNotWebM
		}
		return nil
	}
	return ErrVideoType
}

// IsBadContainer reports whether err came from a failed signature check
func IsBadContainer(err error) bool {
	return errors.Is(err, ErrNotMP4) || errors.Is(err, ErrNotWebM) ||
		errors.Is(err, ErrHeaderTooShort) || errors.Is(err, ErrVideoType)
}

func readHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, SignatureLength)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrHeaderTooShort
		}
		return nil, err
	}
	return header, nil
}

func ContentTypeFor(filename string) string {
	if ct, ok := videoContentTypes[filepath.Ext(strings.ToLower(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
