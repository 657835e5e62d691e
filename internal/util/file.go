package util

import (
	"io"
	"net/http"
	"strings"
)

// SniffMimeType 读取前512字节探测文件真实 MIME 类型。
// 返回探测结果和已读取的头部字节，调用方需用 io.MultiReader 拼回完整内容。
func SniffMimeType(reader io.Reader) (string, []byte, error) {
	// ReadFull 读满512字节为止，单次 Read 允许少读
	buffer := make([]byte, 512)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}

	mimeType := http.DetectContentType(buffer[:n])
	return mimeType, buffer[:n], nil
}

// MimeTypeAllowed 校验 MIME 类型是否在白名单中
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "application/pdf"
func MimeTypeAllowed(mimeType string, allowedTypes []string) bool {
	// DetectContentType 可能附带参数，如 "text/plain; charset=utf-8"
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	for _, allowed := range allowedTypes {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(mimeType, allowed) {
				return true
			}
		} else if mimeType == allowed {
			return true
		}
	}
	return false
}

// IsImage 检测是否为图片
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
