package repository

import (
	"testing"
	"time"

	"wispa_backend/internal/model"
	"wispa_backend/pkg/database"
	"wispa_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

// 缓存写入是异步的，存入顺序不保证按时间；展示路径必须重排
func TestSortMessagesAscending(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{UUIDBase: model.UUIDBase{ID: "c"}, CreatedAt: base.Add(2 * time.Second)},
		{UUIDBase: model.UUIDBase{ID: "a"}, CreatedAt: base},
		{UUIDBase: model.UUIDBase{ID: "d"}, CreatedAt: base.Add(time.Second)},
		// 同一时刻按 ID 决胜
		{UUIDBase: model.UUIDBase{ID: "b"}, CreatedAt: base.Add(time.Second)},
	}

	sortMessagesAscending(msgs)

	got := make([]string, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, got)

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}

func TestMessagesReturnedAscending(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRepository(db, nil)

	user := &model.User{Email: "a@example.com", Password: "x", FullName: "a", UserCode: 100001}
	require.NoError(t, db.Create(user).Error)
	peer := &model.User{Email: "b@example.com", Password: "x", FullName: "b", UserCode: 100002}
	require.NoError(t, db.Create(peer).Error)

	chat, err := repo.CreateChatWithParticipants(user.ID, peer.ID)
	require.NoError(t, err)

	// 写入顺序与时间顺序不一致
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	offsets := []time.Duration{3 * time.Second, time.Second, 2 * time.Second, 0}
	for _, off := range offsets {
		msg := &model.Message{
			ChatID:    chat.ID,
			SenderID:  user.ID,
			Content:   "hello",
			CreatedAt: base.Add(off),
		}
		require.NoError(t, repo.CreateMessage(msg))
	}

	msgs, err := repo.Messages(chat.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}
