package service

import (
	"testing"
	"time"

	"wispa_backend/internal/model"
	"wispa_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartChatRequiresContact(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)

	// 没有关系：自动发送联系人请求，不创建会话
	result, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, StartStateRequestSent, result.State)
	assert.Nil(t, result.Chat)

	var chatCount int64
	db.Model(&model.Chat{}).Count(&chatCount)
	assert.Equal(t, int64(0), chatCount)

	// 请求待处理：不重复发送
	result, err = svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, StartStatePending, result.State)
}

func TestStartChatFindOrCreate(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	makeContacts(t, db, alice.ID, bob.ID)

	first, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, StartStateChat, first.State)
	require.NotNil(t, first.Chat)
	assert.Len(t, first.Chat.Participants, 2)

	// 再次发起（任意方向）命中同一个会话
	second, err := svc.StartChat(bob.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, StartStateChat, second.State)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)

	var chatCount int64
	db.Model(&model.Chat{}).Count(&chatCount)
	assert.Equal(t, int64(1), chatCount)
}

func TestStartChatSelf(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)

	_, err := svc.StartChat(alice.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrSelfContact)
}

func startChatBetween(t *testing.T, svc *ChatService, a, b uint) *model.Chat {
	t.Helper()
	result, err := svc.StartChat(a, b)
	require.NoError(t, err)
	require.Equal(t, StartStateChat, result.State)
	return result.Chat
}

func TestSendMessageValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	carol := createTestUser(t, db, "carol", 100003)
	makeContacts(t, db, alice.ID, bob.ID)
	chat := startChatBetween(t, svc, alice.ID, bob.ID)

	// 空白内容且无附件
	_, err := svc.SendMessage(alice.ID, chat.ID, "   ", "", "")
	assert.ErrorIs(t, err, util.ErrEmptyMessage)

	// 非会话成员
	_, err = svc.SendMessage(carol.ID, chat.ID, "hi", "", "")
	assert.ErrorIs(t, err, util.ErrNotParticipant)

	// 仅附件的消息合法
	msg, err := svc.SendMessage(alice.ID, chat.ID, "", "/uploads/x.png", "image/png")
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	assert.Equal(t, "/uploads/x.png", msg.AttachmentURL)
}

func TestHistoryOrderAndCursor(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	makeContacts(t, db, alice.ID, bob.ID)
	chat := startChatBetween(t, svc, alice.ID, bob.ID)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &model.Message{
			ChatID:    chat.ID,
			SenderID:  alice.ID,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, svc.ChatRepo.CreateMessage(msg))
	}

	// 最新一页按时间升序
	page, err := svc.History(bob.ID, chat.ID, 3, "")
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "c", page[0].Content)
	assert.Equal(t, "e", page[2].Content)

	// 用最早一条作为游标向前翻页
	older, err := svc.History(bob.ID, chat.ID, 3, page[0].ID)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "a", older[0].Content)
	assert.Equal(t, "b", older[1].Content)

	// 非成员不可读
	carol := createTestUser(t, db, "carol", 100003)
	_, err = svc.History(carol.ID, chat.ID, 10, "")
	assert.ErrorIs(t, err, util.ErrNotParticipant)
}

func TestDeleteMessage(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	makeContacts(t, db, alice.ID, bob.ID)
	chat := startChatBetween(t, svc, alice.ID, bob.ID)

	msg, err := svc.SendMessage(alice.ID, chat.ID, "secret", "", "")
	require.NoError(t, err)

	// 非发送者不能删除
	assert.ErrorIs(t, svc.DeleteMessage(bob.ID, msg.ID), util.ErrNotMessageSender)

	require.NoError(t, svc.DeleteMessage(alice.ID, msg.ID))

	// 历史中不再出现
	history, err := svc.History(bob.ID, chat.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, history)

	// 行仍在库中，仅标记删除
	var stored model.Message
	require.NoError(t, db.First(&stored, "id = ?", msg.ID).Error)
	assert.True(t, stored.IsDeleted)
}

func TestListChatsSummaries(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	carol := createTestUser(t, db, "carol", 100003)
	makeContacts(t, db, alice.ID, bob.ID)
	makeContacts(t, db, alice.ID, carol.ID)

	chatBob := startChatBetween(t, svc, alice.ID, bob.ID)
	chatCarol := startChatBetween(t, svc, alice.ID, carol.ID)

	_, err := svc.SendMessage(bob.ID, chatBob.ID, "first", "", "")
	require.NoError(t, err)
	deleted, err := svc.SendMessage(bob.ID, chatBob.ID, "gone", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMessage(bob.ID, deleted.ID))

	summaries, total, err := svc.ListChats(alice.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, summaries, 2)

	// 有新消息的会话排在前面
	assert.Equal(t, chatBob.ID, summaries[0].ChatID)
	assert.Equal(t, bob.ID, summaries[0].Peer.ID)
	assert.Empty(t, summaries[0].Peer.Password)

	// 预览跳过被删除的消息
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "first", summaries[0].LastMessage.Content)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)

	// 空会话无预览
	assert.Equal(t, chatCarol.ID, summaries[1].ChatID)
	assert.Nil(t, summaries[1].LastMessage)
	assert.Equal(t, int64(0), summaries[1].UnreadCount)
}

func TestMarkReadResetsUnread(t *testing.T) {
	db := newTestDB(t)
	svc := newChatService(t, db)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	makeContacts(t, db, alice.ID, bob.ID)
	chat := startChatBetween(t, svc, alice.ID, bob.ID)

	base := time.Now().Add(-time.Hour)
	var last *model.Message
	for i := 0; i < 3; i++ {
		msg := &model.Message{
			ChatID:    chat.ID,
			SenderID:  bob.ID,
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, svc.ChatRepo.CreateMessage(msg))
		last = msg
	}

	unread, err := svc.ChatRepo.UnreadCount(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	require.NoError(t, svc.MarkRead(alice.ID, chat.ID, last.ID))

	unread, err = svc.ChatRepo.UnreadCount(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// 自己发送的消息不计入未读
	_, err = svc.SendMessage(alice.ID, chat.ID, "mine", "", "")
	require.NoError(t, err)
	unread, err = svc.ChatRepo.UnreadCount(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}
