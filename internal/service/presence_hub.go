package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"wispa_backend/internal/repository"
	"wispa_backend/pkg/logger"
	"wispa_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间

	pubSubChannel = "wispa:ws"
)

var (
	// 内存复用 (sync.Pool)
	messagePool = sync.Pool{
		New: func() interface{} {
			return &WSMessage{}
		},
	}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Hub     *PresenceHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter // 限流器
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 限流校验 (每秒最多 30 条消息，允许突发 50 条)
		if !c.Limiter.Allow() {
			continue
		}

		// 对象池解析消息；复用前必须清零，缺字段的帧不能继承上一帧的值
		wsMsg := messagePool.Get().(*WSMessage)
		*wsMsg = WSMessage{}
		if err := json.Unmarshal(message, wsMsg); err != nil {
			messagePool.Put(wsMsg)
			continue
		}

		monitoring.IMMessageCounter.WithLabelValues(wsMsg.Type, "in").Inc() // 记录上行消息

		if wsMsg.Type == "TYPING" {
			data, ok := wsMsg.Data.(map[string]interface{})
			if !ok {
				messagePool.Put(wsMsg)
				continue
			}
			chatID, _ := data["chatId"].(string)
			if chatID == "" {
				messagePool.Put(wsMsg)
				continue
			}

			c.Hub.HandleTransientEvent(c.UserID, chatID, *wsMsg)
		}
		messagePool.Put(wsMsg)
	}
}

// HandleTransientEvent 处理不需要存库的瞬时事件转发（正在输入提示）。
// 仅转发给会话里除发送者之外的成员，发送者必须在会话内。
func (h *PresenceHub) HandleTransientEvent(senderID uint, chatID string, msg WSMessage) {
	data, ok := msg.Data.(map[string]interface{})
	if !ok || h.ChatRepo == nil {
		return
	}

	memberIDs, err := h.ChatRepo.MemberIDsCached(chatID)
	if err != nil {
		return
	}

	isMember := false
	var targets []uint
	for _, id := range memberIDs {
		if id == senderID {
			isMember = true
		} else {
			targets = append(targets, id)
		}
	}
	if !isMember || len(targets) == 0 {
		return
	}

	data["userId"] = senderID
	msg.Data = data
	h.PushToUsers(targets, msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

type PresenceHub struct {
	shards       [shardCount]*shard
	register     chan *Client
	unregister   chan *Client
	Redis        *redis.Client
	ChatRepo     *repository.ChatRepository
	ContactRepo  *repository.ContactRepository
	SettingsRepo *repository.SettingsRepository
	ctx          context.Context
}

func NewPresenceHub(rdb *redis.Client, chatRepo *repository.ChatRepository, contactRepo *repository.ContactRepository, settingsRepo *repository.SettingsRepository) *PresenceHub {
	h := &PresenceHub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		Redis:        rdb,
		ChatRepo:     chatRepo,
		ContactRepo:  contactRepo,
		SettingsRepo: settingsRepo,
		ctx:          context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

func (h *PresenceHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *PresenceHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, pubSubChannel)
		go func() {
			ch := pubsub.Channel()
			for msg := range ch {
				var psMsg PubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.pushToLocalRawUsers(psMsg.TargetUsers, psMsg.Payload)
			}
		}()
	}

	// 批量处理状态更新
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type statusUpdate struct {
		userID uint
		status string
	}
	var pendingUpdates []statusUpdate

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if old, ok := s.clients[client.UserID]; ok {
				// 重连挤掉旧连接；在线人数不变
				if old != client {
					close(old.Send)
				}
			} else {
				monitoring.IMOnlineUsers.Inc()
			}
			s.clients[client.UserID] = client
			s.mu.Unlock()
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "online"})

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			// 被挤掉的旧连接随后也会注销，身份比对保证不误删新连接
			current, ok := s.clients[client.UserID]
			if ok && current == client {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.IMOnlineUsers.Dec()
				s.mu.Unlock()
				pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "offline"})
			} else {
				s.mu.Unlock()
			}

		case <-heartbeatTicker.C:
			// 为本地在线用户批量续期
			h.refreshOnlineStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 {
				continue
			}

			if h.Redis != nil {
				pipe := h.Redis.Pipeline()
				for _, update := range pendingUpdates {
					key := fmt.Sprintf("wispa:user:online:%d", update.userID)
					if update.status == "online" {
						pipe.Set(h.ctx, key, "true", onlineTTL) // 增加 TTL
					} else {
						pipe.Del(h.ctx, key)
					}
				}
				if _, err := pipe.Exec(h.ctx); err != nil {
					logger.Log.Error("Redis pipeline error", zap.Error(err))
				}
			}

			// 发送状态通知
			for _, update := range pendingUpdates {
				h.NotifyStatus(update.userID, update.status)
			}
			pendingUpdates = pendingUpdates[:0]
		}
	}
}

// refreshOnlineStatus 刷新当前服务器所有在线用户的过期时间
func (h *PresenceHub) refreshOnlineStatus() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, fmt.Sprintf("wispa:user:online:%d", userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

// NotifyStatus 向联系人广播上下线。用户关闭了在线状态展示时不广播。
func (h *PresenceHub) NotifyStatus(userID uint, status string) {
	if h.SettingsRepo != nil {
		if settings, err := h.SettingsRepo.Get(userID); err == nil && !settings.OnlineStatusEnabled {
			return
		}
	}

	msg := WSMessage{
		Type: "USER_STATUS",
		Data: map[string]interface{}{
			"userId": userID,
			"status": status,
		},
	}

	relatedIDs := h.getRelatedUserIDs(userID)
	if len(relatedIDs) > 0 {
		h.PushToUsers(relatedIDs, msg)
	}
}

// getRelatedUserIDs 获取关心该用户状态的用户ID（已接受的联系人）
func (h *PresenceHub) getRelatedUserIDs(userID uint) []uint {
	if h.ContactRepo == nil {
		return nil
	}
	ids, err := h.ContactRepo.AcceptedIDsCached(userID)
	if err != nil {
		return nil
	}
	return ids
}

// Stop 关闭所有连接并清理在线状态
func (h *PresenceHub) Stop() {
	logger.Log.Info("PresenceHub stopping: clearing online status and closing connections...")

	var allUserIDs []uint
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			allUserIDs = append(allUserIDs, userID)
			close(client.Send)
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	if len(allUserIDs) > 0 && h.Redis != nil {
		pipe := h.Redis.Pipeline()
		for _, userID := range allUserIDs {
			pipe.Del(h.ctx, fmt.Sprintf("wispa:user:online:%d", userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.IMOnlineUsers.Set(0) // 停机时清空指标
	logger.Log.Info("PresenceHub stopped", zap.Int("closedConnections", len(allUserIDs)))
}

func (h *PresenceHub) PushToUsers(userIDs []uint, msg WSMessage) {
	// 避免二次序列化
	msgBytes, _ := json.Marshal(msg)
	monitoring.IMMessageCounter.WithLabelValues(msg.Type, "out").Inc() // 记录下行消息

	if h.Redis == nil {
		// 单实例部署，直接本地推送
		h.pushToLocalRawUsers(userIDs, msgBytes)
		return
	}

	psMsg := PubSubMessage{
		TargetUsers: userIDs,
		Payload:     msgBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, pubSubChannel, payload)
}

func (h *PresenceHub) pushToLocalRawUsers(userIDs []uint, payload []byte) {
	if len(userIDs) == 0 {
		return
	}

	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *PresenceHub) IsUserOnline(userID uint) bool {
	// 查本地分片
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	if ok {
		return true
	}

	if h.Redis == nil {
		return false
	}

	// 查 Redis (多实例部署)
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("wispa:user:online:%d", userID)).Result()
	return err == nil && val == "true"
}

func ServeWs(hub *PresenceHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30条，允许突发50条
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
