package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"wispa_backend/internal/model"
	"wispa_backend/internal/repository"
	"wispa_backend/internal/util"

	"gorm.io/gorm"
)

// StartChat 的结果状态
const (
	StartStateChat        = "chat"         // 已是联系人，会话可用
	StartStateRequestSent = "request_sent" // 尚无关系，已代为发送联系人请求
	StartStatePending     = "pending"      // 已有待处理请求，等待确认
)

type ChatService struct {
	ChatRepo    *repository.ChatRepository
	ContactRepo *repository.ContactRepository
	Storage     *StorageService
	Hub         *PresenceHub
}

func NewChatService(chatRepo *repository.ChatRepository, contactRepo *repository.ContactRepository, storage *StorageService, hub *PresenceHub) *ChatService {
	return &ChatService{
		ChatRepo:    chatRepo,
		ContactRepo: contactRepo,
		Storage:     storage,
		Hub:         hub,
	}
}

// StartChatResult 发起会话的结果。State 不为 chat 时 Chat 为空。
type StartChatResult struct {
	State string      `json:"state"`
	Chat  *model.Chat `json:"chat,omitempty"`
}

// StartChat 发起与 peer 的会话。只有已接受的联系人之间才会创建会话：
// 没有关系时自动发送联系人请求，已有待处理请求时提示等待。
func (s *ChatService) StartChat(viewerID, peerID uint) (*StartChatResult, error) {
	if viewerID == peerID {
		return nil, util.ErrSelfContact
	}

	edge, err := s.ContactRepo.FindPair(viewerID, peerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if edge == nil || edge.Status == model.ContactRejected {
		if edge == nil {
			newEdge := &model.Contact{
				UserID:    viewerID,
				ContactID: peerID,
				Status:    model.ContactPending,
			}
			if err := s.ContactRepo.Create(newEdge); err != nil {
				return nil, err
			}
		} else {
			if err := s.ContactRepo.Rearm(edge.ID, viewerID, peerID); err != nil {
				return nil, err
			}
		}
		return &StartChatResult{State: StartStateRequestSent}, nil
	}

	if edge.Status == model.ContactPending {
		return &StartChatResult{State: StartStatePending}, nil
	}

	// 已接受，find-or-create
	chat, err := s.ChatRepo.FindPrivateChat(viewerID, peerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		chat, err = s.ChatRepo.CreateChatWithParticipants(viewerID, peerID)
		if err != nil {
			return nil, err
		}
	}
	return &StartChatResult{State: StartStateChat, Chat: chat}, nil
}

// ChatSummary 会话列表条目，对端资料、最新消息和未读数在读取时派生
type ChatSummary struct {
	ChatID      string         `json:"chatId"`
	Peer        model.User     `json:"peer"`
	PeerOnline  bool           `json:"peerOnline"`
	LastMessage *model.Message `json:"lastMessage,omitempty"`
	UnreadCount int64          `json:"unreadCount"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (s *ChatService) ListChats(viewerID uint, limit, offset int) ([]ChatSummary, int64, error) {
	chats, total, err := s.ChatRepo.ListChats(viewerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := ChatSummary{
			ChatID:    chat.ID,
			UpdatedAt: chat.UpdatedAt,
			CreatedAt: chat.CreatedAt,
		}

		for _, p := range chat.Participants {
			if p.UserID != viewerID {
				peer := p.User
				peer.Password = ""
				summary.Peer = peer
				if s.Hub != nil {
					summary.PeerOnline = s.Hub.IsUserOnline(p.UserID)
				}
			}
		}

		if last, err := s.ChatRepo.LastMessage(chat.ID); err == nil {
			last.Sender = model.User{}
			summary.LastMessage = last
		}

		if unread, err := s.ChatRepo.UnreadCount(chat.ID, viewerID); err == nil {
			summary.UnreadCount = unread
		}

		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

// History 消息历史，按时间升序返回。beforeID 游标用于向前翻页。
func (s *ChatService) History(viewerID uint, chatID string, limit int, beforeID string) ([]model.Message, error) {
	if _, err := s.ChatRepo.GetParticipant(chatID, viewerID); err != nil {
		return nil, util.ErrNotParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	msgs, err := s.ChatRepo.Messages(chatID, limit, beforeID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Sender.Password = ""
	}
	return msgs, nil
}

// SendMessage 发送消息并实时推送给会话内其他成员
func (s *ChatService) SendMessage(viewerID uint, chatID, content, attachmentURL, attachmentType string) (*model.Message, error) {
	if _, err := s.ChatRepo.GetParticipant(chatID, viewerID); err != nil {
		return nil, util.ErrNotParticipant
	}

	content = strings.TrimSpace(content)
	if content == "" && attachmentURL == "" {
		return nil, util.ErrEmptyMessage
	}

	msg := &model.Message{
		ChatID:         chatID,
		SenderID:       viewerID,
		Content:        content,
		AttachmentURL:  attachmentURL,
		AttachmentType: attachmentType,
	}
	if err := s.ChatRepo.CreateMessage(msg); err != nil {
		return nil, err
	}

	s.notifyNewMessage(msg)
	return msg, nil
}

func (s *ChatService) notifyNewMessage(msg *model.Message) {
	if s.Hub == nil {
		return
	}
	memberIDs, err := s.ChatRepo.MemberIDsCached(msg.ChatID)
	if err != nil {
		return
	}
	var targets []uint
	for _, id := range memberIDs {
		if id != msg.SenderID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return
	}
	s.Hub.PushToUsers(targets, WSMessage{
		Type: "NEW_MESSAGE",
		Data: msg,
	})
}

// UploadAttachment 校验后上传聊天附件，返回可用于 SendMessage 的 URL 和类型。
// 超限或类型不符时不会产生任何存储写入。
func (s *ChatService) UploadAttachment(ctx context.Context, viewerID uint, chatID string, reader io.Reader, size int64, filename string) (string, string, error) {
	if _, err := s.ChatRepo.GetParticipant(chatID, viewerID); err != nil {
		return "", "", util.ErrNotParticipant
	}

	if size > util.MaxAttachmentSize {
		return "", "", util.ErrAttachmentTooLarge
	}

	mimeType, head, err := util.SniffMimeType(reader)
	if err != nil {
		return "", "", err
	}
	if !util.MimeTypeAllowed(mimeType, util.AllowedAttachmentMimeTypes) {
		return "", "", util.ErrAttachmentType
	}

	objectName := fmt.Sprintf("%s/%s/%s%s",
		util.AttachmentPrefix, chatID, model.GenerateUUID(), extForMime(mimeType, filename))

	full := io.MultiReader(bytes.NewReader(head), reader)
	url, err := s.Storage.Upload(ctx, objectName, full, size, mimeType)
	if err != nil {
		return "", "", err
	}
	return url, mimeType, nil
}

// DeleteMessage 软删除自己发送的消息
func (s *ChatService) DeleteMessage(viewerID uint, msgID string) error {
	msg, err := s.ChatRepo.SoftDelete(msgID, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotMessageSender
		}
		return err
	}

	if s.Hub != nil {
		if memberIDs, err := s.ChatRepo.MemberIDsCached(msg.ChatID); err == nil {
			var targets []uint
			for _, id := range memberIDs {
				if id != viewerID {
					targets = append(targets, id)
				}
			}
			if len(targets) > 0 {
				s.Hub.PushToUsers(targets, WSMessage{
					Type: "MESSAGE_DELETED",
					Data: map[string]interface{}{
						"chatId":    msg.ChatID,
						"messageId": msg.ID,
					},
				})
			}
		}
	}
	return nil
}

// MarkRead 推进已读位置
func (s *ChatService) MarkRead(viewerID uint, chatID, msgID string) error {
	if _, err := s.ChatRepo.GetParticipant(chatID, viewerID); err != nil {
		return util.ErrNotParticipant
	}
	return s.ChatRepo.UpdateLastRead(chatID, viewerID, msgID)
}
