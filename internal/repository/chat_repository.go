package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"wispa_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const maxCacheMessages = 50 // 每个会话缓存最近50条消息

type ChatRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewChatRepository(db *gorm.DB, rdb *redis.Client) *ChatRepository {
	return &ChatRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func (r *ChatRepository) GetChat(id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.DB.Preload("Participants.User").First(&chat, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindPrivateChat 查找两个用户共同参与的会话。
// 按创建时间升序取最早的一个，结果与参数顺序无关；
// 历史上已产生的重复会话不做修复，但读取始终命中同一个。
func (r *ChatRepository) FindPrivateChat(userID1, userID2 uint) (*model.Chat, error) {
	var chat model.Chat
	err := r.DB.Table("chats").
		Joins("JOIN chat_participants cp1 ON cp1.chat_id = chats.id").
		Joins("JOIN chat_participants cp2 ON cp2.chat_id = chats.id").
		Where("cp1.user_id = ?", userID1).
		Where("cp2.user_id = ?", userID2).
		Order("chats.created_at ASC, chats.id ASC").
		Preload("Participants.User").
		First(&chat).Error

	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateChatWithParticipants 会话和两条成员记录在同一事务内创建，
// 不会留下无成员的孤儿会话。
func (r *ChatRepository) CreateChatWithParticipants(userID1, userID2 uint) (*model.Chat, error) {
	chat := &model.Chat{}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		participants := []model.ChatParticipant{
			{ChatID: chat.ID, UserID: userID1},
			{ChatID: chat.ID, UserID: userID2},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, err
	}

	if r.Redis != nil {
		r.Redis.Del(r.ctx, fmt.Sprintf("wispa:relation:chat_members:%s", chat.ID))
	}
	return r.GetChat(chat.ID)
}

func (r *ChatRepository) GetParticipant(chatID string, userID uint) (*model.ChatParticipant, error) {
	var p model.ChatParticipant
	err := r.DB.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListChats 用户的会话列表，按最近活跃时间倒序分页。
// 没有消息的会话按创建时间参与排序（updated_at 初始等于 created_at）。
func (r *ChatRepository) ListChats(userID uint, limit, offset int) ([]model.Chat, int64, error) {
	var chats []model.Chat
	var total int64

	db := r.DB.Model(&model.Chat{}).
		Joins("JOIN chat_participants ON chat_participants.chat_id = chats.id").
		Where("chat_participants.user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Participants.User").
		Order("chats.updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&chats).Error

	return chats, total, err
}

// LastMessage 会话内最新的未删除消息，用于列表预览
func (r *ChatRepository) LastMessage(chatID string) (*model.Message, error) {
	var msg model.Message
	err := r.DB.Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UnreadCount 自上次已读时间以来对端发来的未删除消息数
func (r *ChatRepository) UnreadCount(chatID string, userID uint) (int64, error) {
	p, err := r.GetParticipant(chatID, userID)
	if err != nil {
		return 0, err
	}

	db := r.DB.Model(&model.Message{}).
		Where("chat_id = ? AND sender_id != ? AND is_deleted = ?", chatID, userID, false)
	if p.LastReadMessageTime != nil {
		db = db.Where("created_at > ?", *p.LastReadMessageTime)
	}

	var count int64
	err = db.Count(&count).Error
	return count, err
}

// Messages 游标分页读取消息，返回按 created_at 升序的结果。
// beforeID 为空表示最新一页。
func (r *ChatRepository) Messages(chatID string, limit int, beforeID string) ([]model.Message, error) {
	// 第一页尝试命中缓存
	if beforeID == "" && r.Redis != nil {
		if cached := r.cachedMessages(chatID, limit); cached != nil {
			return cached, nil
		}
	}

	db := r.DB.Preload("Sender").Where("chat_id = ? AND is_deleted = ?", chatID, false)

	if beforeID != "" {
		var beforeMsg model.Message
		if err := r.DB.First(&beforeMsg, "id = ?", beforeID).Error; err == nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)",
				beforeMsg.CreatedAt, beforeMsg.CreatedAt, beforeMsg.ID)
		}
	}

	var msgs []model.Message
	err := db.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	sortMessagesAscending(msgs)
	return msgs, nil
}

// sortMessagesAscending 按 (created_at, id) 升序排列，展示路径统一走这里
func sortMessagesAscending(msgs []model.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// CreateMessage 写入消息并在同一事务内推进会话活跃时间
func (r *ChatRepository) CreateMessage(msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = model.GenerateUUID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return err
	}

	if r.Redis != nil {
		go r.cacheMessage(msg)
	}
	return nil
}

// SoftDelete 软删除，仅发送者本人可删
func (r *ChatRepository) SoftDelete(msgID string, senderID uint) (*model.Message, error) {
	var msg model.Message
	if err := r.DB.First(&msg, "id = ? AND sender_id = ?", msgID, senderID).Error; err != nil {
		return nil, err
	}

	if msg.IsDeleted {
		return &msg, nil
	}

	msg.IsDeleted = true
	err := r.DB.Save(&msg).Error

	if err == nil && r.Redis != nil {
		// 删除后清缓存，下次拉取回源
		r.Redis.Del(r.ctx, fmt.Sprintf("wispa:cache:%s", msg.ChatID))
	}
	return &msg, err
}

// UpdateLastRead 推进已读位置（读回执）
func (r *ChatRepository) UpdateLastRead(chatID string, userID uint, msgID string) error {
	var msg model.Message
	if err := r.DB.First(&msg, "id = ?", msgID).Error; err != nil {
		return err
	}
	readTime := msg.CreatedAt.UTC()
	return r.DB.Model(&model.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Updates(map[string]interface{}{
			"last_read_message_id":   msgID,
			"last_read_message_time": readTime,
		}).Error
}

// MemberIDs 会话成员 ID 列表
func (r *ChatRepository) MemberIDs(chatID string) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("chat_participants").
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// MemberIDsCached 会话成员 ID 列表 (带缓存)
func (r *ChatRepository) MemberIDsCached(chatID string) ([]uint, error) {
	if r.Redis == nil {
		return r.MemberIDs(chatID)
	}

	key := fmt.Sprintf("wispa:relation:chat_members:%s", chatID)
	cached, err := r.Redis.SMembers(r.ctx, key).Result()
	if err == nil && len(cached) > 0 {
		var ids []uint
		for _, s := range cached {
			var id uint
			fmt.Sscanf(s, "%d", &id)
			if id > 0 {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	ids, err := r.MemberIDs(chatID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, 24*time.Hour)
		pipe.Exec(r.ctx)
	}
	return ids, err
}

func (r *ChatRepository) cacheMessage(msg *model.Message) {
	// 确保发送者信息已加载
	if msg.Sender.ID == 0 {
		r.DB.Preload("Sender").First(msg, "id = ?", msg.ID)
	}

	key := fmt.Sprintf("wispa:cache:%s", msg.ChatID)
	data, _ := json.Marshal(msg)

	pipe := r.Redis.Pipeline()
	pipe.LPush(r.ctx, key, data)
	pipe.LTrim(r.ctx, key, 0, maxCacheMessages-1)
	pipe.Expire(r.ctx, key, 24*time.Hour)
	pipe.Exec(r.ctx)
}

// cachedMessages 缓存命中时返回升序结果，数量不足时返回 nil 回源
func (r *ChatRepository) cachedMessages(chatID string, limit int) []model.Message {
	key := fmt.Sprintf("wispa:cache:%s", chatID)
	cached, err := r.Redis.LRange(r.ctx, key, 0, int64(limit-1)).Result()
	if err != nil || len(cached) < limit {
		return nil
	}

	msgs := make([]model.Message, 0, len(cached))
	for _, item := range cached {
		var m model.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil
		}
		msgs = append(msgs, m)
	}

	// 缓存异步写入，LPush 顺序不保证严格按时间，读取时重新排序
	sortMessagesAscending(msgs)
	return msgs
}
