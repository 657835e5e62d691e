package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"wispa_backend/internal/model"
	"wispa_backend/internal/repository"
	"wispa_backend/internal/util"

	"gorm.io/gorm"
)

type ProfileService struct {
	UserRepo     *repository.UserRepository
	SettingsRepo *repository.SettingsRepository
	Storage      *StorageService
}

func NewProfileService(userRepo *repository.UserRepository, settingsRepo *repository.SettingsRepository, storage *StorageService) *ProfileService {
	return &ProfileService{
		UserRepo:     userRepo,
		SettingsRepo: settingsRepo,
		Storage:      storage,
	}
}

// Profile 个人资料视图，用户信息与主题设置合并返回
type Profile struct {
	model.User
	Theme string `json:"theme"`
}

// ProfileUpdate 资料更新请求，nil 字段不修改
type ProfileUpdate struct {
	FullName      *string `json:"fullName"`
	StatusMessage *string `json:"statusMessage"`
	Theme         *string `json:"theme"`
}

func (s *ProfileService) GetProfile(userID uint) (*Profile, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	theme := "light"
	if settings, err := s.SettingsRepo.Get(userID); err == nil {
		theme = settings.Theme
	}

	user.Password = ""
	return &Profile{User: *user, Theme: theme}, nil
}

// UpdateProfile 资料字段和主题在同一事务内更新，部分成功不会落库
func (s *ProfileService) UpdateProfile(userID uint, update *ProfileUpdate) (*Profile, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	err = s.UserRepo.DB.Transaction(func(tx *gorm.DB) error {
		userUpdates := map[string]interface{}{}
		if update.FullName != nil {
			name := strings.TrimSpace(*update.FullName)
			if name == "" {
				return util.ErrUserNotFound
			}
			userUpdates["full_name"] = name
		}
		if update.StatusMessage != nil {
			userUpdates["status_message"] = *update.StatusMessage
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		if update.Theme != nil {
			theme := *update.Theme
			if theme != "light" && theme != "dark" {
				theme = "light"
			}
			if err := tx.Model(&model.UserSettings{}).
				Where("user_id = ?", user.ID).
				Update("theme", theme).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetProfile(userID)
}

// UploadAvatar 头像上传，固定路径覆盖旧头像
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, reader io.Reader, size int64, filename string) (string, error) {
	if size > util.MaxAvatarSize {
		return "", util.ErrAttachmentTooLarge
	}

	mimeType, head, err := util.SniffMimeType(reader)
	if err != nil {
		return "", err
	}
	if !util.MimeTypeAllowed(mimeType, util.AllowedAvatarMimeTypes) {
		return "", util.ErrAttachmentType
	}

	ext := extForMime(mimeType, filename)
	objectName := fmt.Sprintf("%s/%d/avatar%s", util.AvatarPrefix, userID, ext)

	full := io.MultiReader(bytes.NewReader(head), reader)
	url, err := s.Storage.Upload(ctx, objectName, full, size, mimeType)
	if err != nil {
		return "", err
	}

	// 追加时间戳参数，避免固定路径被客户端缓存
	url = fmt.Sprintf("%s?t=%d", url, time.Now().Unix())
	err = s.UserRepo.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("avatar_url", url).Error
	return url, err
}

// SearchByCode 按6位用户码查找用户，返回公开名片和与 viewer 的关系状态
func (s *ProfileService) SearchByCode(viewerID uint, code uint, contactRepo *repository.ContactRepository) (*model.User, string, error) {
	if code < 100000 || code > 999999 {
		return nil, "", util.ErrInvalidUserCode
	}

	user, err := s.UserRepo.FindByUserCode(code)
	if err != nil {
		return nil, "", util.ErrUserNotFound
	}

	status := "none"
	if user.ID == viewerID {
		status = "self"
	} else if edge, err := contactRepo.FindPair(viewerID, user.ID); err == nil {
		status = edge.Status
	}

	user.Password = ""
	user.Email = "" // 名片不暴露邮箱
	return user, status, nil
}

// PublicCard 公开名片：任何登录用户可见的字段，不含邮箱
func (s *ProfileService) PublicCard(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	user.Password = ""
	user.Email = ""
	return user, nil
}

func (s *ProfileService) GetSettings(userID uint) (*model.UserSettings, error) {
	return s.SettingsRepo.Get(userID)
}

// SettingsUpdate 设置更新请求，nil 字段不修改
type SettingsUpdate struct {
	Theme                *string `json:"theme"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	ReadReceiptsEnabled  *bool   `json:"readReceiptsEnabled"`
	OnlineStatusEnabled  *bool   `json:"onlineStatusEnabled"`
}

func (s *ProfileService) UpdateSettings(userID uint, update *SettingsUpdate) (*model.UserSettings, error) {
	updates := map[string]interface{}{}
	if update.Theme != nil {
		theme := *update.Theme
		if theme != "light" && theme != "dark" {
			theme = "light"
		}
		updates["theme"] = theme
	}
	if update.NotificationsEnabled != nil {
		updates["notifications_enabled"] = *update.NotificationsEnabled
	}
	if update.ReadReceiptsEnabled != nil {
		updates["read_receipts_enabled"] = *update.ReadReceiptsEnabled
	}
	if update.OnlineStatusEnabled != nil {
		updates["online_status_enabled"] = *update.OnlineStatusEnabled
	}

	if len(updates) > 0 {
		if err := s.SettingsRepo.Update(userID, updates); err != nil {
			return nil, err
		}
	}
	return s.SettingsRepo.Get(userID)
}

// extForMime 优先按探测到的类型决定扩展名，回退到原始文件名
func extForMime(mimeType, filename string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mimeType, "image/png"):
		return ".png"
	case strings.HasPrefix(mimeType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(mimeType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(mimeType, "application/pdf"):
		return ".pdf"
	}
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		return filename[idx:]
	}
	return ""
}
