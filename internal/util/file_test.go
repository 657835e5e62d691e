package util

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffMimeType(t *testing.T) {
	// PNG 魔数
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	payload := append(pngHeader, bytes.Repeat([]byte{0x00}, 100)...)

	mimeType, head, err := SniffMimeType(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	// 拼回的内容必须与原始字节一致
	rest, err := io.ReadAll(io.MultiReader(bytes.NewReader(head), bytes.NewReader(payload[len(head):])))
	require.NoError(t, err)
	assert.Equal(t, payload, rest)
}

// 来源可能是一次只吐几个字节的流（分块上传），探测不能只依赖单次 Read
func TestSniffMimeTypeFragmentedReader(t *testing.T) {
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	payload := append(pngHeader, bytes.Repeat([]byte{0x00}, 600)...)

	r := iotest.OneByteReader(bytes.NewReader(payload))
	mimeType, head, err := SniffMimeType(r)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Len(t, head, 512)

	rest, err := io.ReadAll(io.MultiReader(bytes.NewReader(head), r))
	require.NoError(t, err)
	assert.Equal(t, payload, rest)
}

func TestSniffMimeTypeShortInput(t *testing.T) {
	mimeType, head, err := SniffMimeType(bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), head)
	assert.Contains(t, mimeType, "text/plain")
}

func TestMimeTypeAllowed(t *testing.T) {
	assert.True(t, MimeTypeAllowed("image/png", AllowedAttachmentMimeTypes))
	assert.True(t, MimeTypeAllowed("application/pdf", AllowedAttachmentMimeTypes))
	assert.False(t, MimeTypeAllowed("application/zip", AllowedAttachmentMimeTypes))
	assert.False(t, MimeTypeAllowed("video/mp4", AllowedAttachmentMimeTypes))

	// 带 charset 参数的类型
	assert.False(t, MimeTypeAllowed("text/plain; charset=utf-8", AllowedAttachmentMimeTypes))

	// 前缀白名单
	assert.True(t, MimeTypeAllowed("image/webp", AllowedAvatarMimeTypes))
	assert.False(t, MimeTypeAllowed("application/pdf", AllowedAvatarMimeTypes))
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/jpeg"))
	assert.False(t, IsImage("application/pdf"))
}
