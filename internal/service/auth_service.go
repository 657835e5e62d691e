package service

import (
	"math/rand"
	"time"

	"wispa_backend/internal/config"
	"wispa_backend/internal/model"
	"wispa_backend/internal/repository"
	"wispa_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 用户码生成冲突时的最大重试次数
const maxUserCodeAttempts = 10

type AuthService struct {
	UserRepo *repository.UserRepository
	Config   *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Config:   cfg,
	}
}

// Register 注册新用户。用户、设置行和6位用户码在同一事务内落库，
// 不会出现没有设置行或没有用户码的账号。
func (s *AuthService) Register(email, password, fullName string) (*model.User, error) {
	if _, err := s.UserRepo.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	code, err := s.generateUserCode()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    email,
		Password: string(hashed),
		FullName: fullName,
		UserCode: code,
		LastSeen: time.Now(),
	}

	err = s.UserRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		settings := &model.UserSettings{UserID: user.ID}
		return tx.Create(settings).Error
	})
	if err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// Login 校验密码并签发 JWT
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return "", nil, util.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, err
	}

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	user.Password = ""
	return token, user, nil
}

// generateUserCode 生成全局唯一的6位数字查找码 (100000-999999)。
// 唯一索引兜底，这里的存在性检查只是减少写冲突。
func (s *AuthService) generateUserCode() (uint, error) {
	var lastErr error
	for i := 0; i < maxUserCodeAttempts; i++ {
		code := uint(rand.Intn(900000) + 100000)
		exists, err := s.UserRepo.UserCodeExists(code)
		if err != nil {
			lastErr = err
			continue
		}
		if !exists {
			return code, nil
		}
	}
	if lastErr != nil {
		return 0, lastErr
	}
	return 0, util.ErrInvalidUserCode
}
