package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MaxAttachmentSize = 10 << 20 // 附件上限 10MB
	MaxAvatarSize     = 5 << 20  // 头像上限 5MB

	AvatarPrefix     = "avatars"
	AttachmentPrefix = "chat_attachments"
)

var (
	// AllowedAttachmentMimeTypes 聊天附件类型白名单
	AllowedAttachmentMimeTypes = []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"application/pdf",
	}

	// AllowedAvatarMimeTypes 头像仅允许图片
	AllowedAvatarMimeTypes = []string{"image/"}
)
