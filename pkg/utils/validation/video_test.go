package validation

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mp4Header(brand string) []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p'}, []byte(brand)...)
}

func TestIsMP4Header(t *testing.T) {
	for _, brand := range []string{"isom", "mp42", "avc1", "M4V ", "qt  "} {
		assert.True(t, IsMP4Header(mp4Header(brand)), brand)
	}

	assert.False(t, IsMP4Header(mp4Header("xxxx")))
	assert.False(t, IsMP4Header([]byte("RIFF....WEBPVP8 ")))
	assert.False(t, IsMP4Header([]byte{0, 0, 0}))
}

func TestSniffMP4(t *testing.T) {
	assert.NoError(t, SniffMP4(bytes.NewReader(append(mp4Header("isom"), 0x01, 0x02))))
	assert.ErrorIs(t, SniffMP4(bytes.NewReader([]byte("short"))), ErrHeaderTooShort)
	assert.ErrorIs(t, SniffMP4(bytes.NewReader([]byte("this is plain text"))), ErrNotMP4)
}

func TestSniffVideo(t *testing.T) {
	webm := append([]byte{0x1A, 0x45, 0xDF, 0xA3}, []byte("webm-header-bytes")...)

	assert.NoError(t, SniffVideo(bytes.NewReader(mp4Header("isom")), "clip.MOV"))
	assert.NoError(t, SniffVideo(bytes.NewReader(webm), "clip.webm"))
	assert.ErrorIs(t, SniffVideo(bytes.NewReader([]byte("plain text, not a webm")), "clip.webm"), ErrNotWebM)
	assert.ErrorIs(t, SniffVideo(bytes.NewReader(webm), "clip.mp4"), ErrNotMP4)
	assert.ErrorIs(t, SniffVideo(bytes.NewReader([]byte{0x1A, 0x45}), "clip.webm"), ErrHeaderTooShort)
	assert.ErrorIs(t, SniffVideo(bytes.NewReader(webm), "clip.avi"), ErrVideoType)

	assert.True(t, IsBadContainer(ErrNotWebM))
	assert.False(t, IsBadContainer(ErrVideoSize))
}

func TestValidateVideo(t *testing.T) {
	assert.ErrorIs(t, ValidateVideo(nil), ErrVideoRequired)
	assert.ErrorIs(t, ValidateVideo(&multipart.FileHeader{Filename: "a.exe", Size: 10}), ErrVideoType)
	assert.ErrorIs(t, ValidateVideo(&multipart.FileHeader{Filename: "a.mp4", Size: MaxVideoSize + 1}), ErrVideoSize)
	assert.NoError(t, ValidateVideo(&multipart.FileHeader{Filename: "A.MP4", Size: 10}))
}

func TestValidateThumbnail(t *testing.T) {
	assert.ErrorIs(t, ValidateThumbnail(nil), ErrFileRequired)
	assert.ErrorIs(t, ValidateThumbnail(&multipart.FileHeader{Filename: "a.gif", Size: 10}), ErrFileType)
	assert.NoError(t, ValidateThumbnail(&multipart.FileHeader{Filename: "a.png", Size: 10}))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeFor("a.MP4"))
	assert.Equal(t, "video/webm", ContentTypeFor("b.webm"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("c.avi"))
}
