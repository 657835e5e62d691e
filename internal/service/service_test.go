package service

import (
	"fmt"
	"testing"

	"wispa_backend/internal/config"
	"wispa_backend/internal/model"
	"wispa_backend/internal/repository"
	"wispa_backend/pkg/database"
	"wispa_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret!"
	cfg.JWT.ExpireTime = 3600000000000
	cfg.Storage.Type = "local"
	return cfg
}

// createTestUser 直接落库一个用户和设置行，密码为 "password123"
func createTestUser(t *testing.T, db *gorm.DB, name string, code uint) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: string(hashed),
		FullName: name,
		UserCode: code,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.UserSettings{UserID: user.ID}).Error)
	return user
}

func newContactService(t *testing.T, db *gorm.DB) *ContactService {
	t.Helper()
	return NewContactService(
		repository.NewContactRepository(db, nil),
		repository.NewUserRepository(db),
	)
}

func newChatService(t *testing.T, db *gorm.DB) *ChatService {
	t.Helper()
	return NewChatService(
		repository.NewChatRepository(db, nil),
		repository.NewContactRepository(db, nil),
		NewStorageService(testConfig()),
		nil,
	)
}

// makeContacts 建立一条已接受的联系人边
func makeContacts(t *testing.T, db *gorm.DB, a, b uint) {
	t.Helper()
	edge := &model.Contact{UserID: a, ContactID: b, Status: model.ContactAccepted}
	require.NoError(t, db.Create(edge).Error)
}
