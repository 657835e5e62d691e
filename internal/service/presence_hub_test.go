package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"wispa_backend/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *PresenceHub {
	t.Helper()
	db := newTestDB(t)
	hub := NewPresenceHub(nil,
		repository.NewChatRepository(db, nil),
		repository.NewContactRepository(db, nil),
		repository.NewSettingsRepository(db),
	)
	go hub.Run()
	return hub
}

// 重连后旧连接的注销不能把新连接踢下线
func TestHubReconnectKeepsLiveClient(t *testing.T) {
	hub := newTestHub(t)

	stale := &Client{Hub: hub, Send: make(chan []byte, 8), UserID: 1}
	hub.register <- stale
	require.Eventually(t, func() bool { return hub.IsUserOnline(1) }, time.Second, 10*time.Millisecond)

	// 同一用户重连
	live := &Client{Hub: hub, Send: make(chan []byte, 8), UserID: 1}
	hub.register <- live

	// 旧连接被挤掉：发送通道关闭
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stale.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// 旧连接随后注销；借助同通道的第二次注销确认其已被处理
	other := &Client{Hub: hub, Send: make(chan []byte, 8), UserID: 2}
	hub.register <- other
	require.Eventually(t, func() bool { return hub.IsUserOnline(2) }, time.Second, 10*time.Millisecond)

	hub.unregister <- stale
	hub.unregister <- other
	require.Eventually(t, func() bool { return !hub.IsUserOnline(2) }, time.Second, 10*time.Millisecond)

	// 新连接仍然在线且能收到推送
	assert.True(t, hub.IsUserOnline(1))
	hub.PushToUsers([]uint{1}, WSMessage{Type: "NEW_MESSAGE", Data: map[string]interface{}{"ping": true}})
	select {
	case payload, ok := <-live.Send:
		require.True(t, ok)
		assert.Contains(t, string(payload), "NEW_MESSAGE")
	case <-time.After(time.Second):
		t.Fatal("新连接没有收到推送")
	}
}

// waitForType 读取帧直到出现目标类型；超时返回 nil
func waitForType(conn *websocket.Conn, wantType string, timeout time.Duration) map[string]interface{} {
	deadline := time.Now().Add(timeout)
	for {
		conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var msg WSMessage
		if json.Unmarshal(payload, &msg) != nil {
			continue
		}
		if msg.Type == wantType {
			data, _ := msg.Data.(map[string]interface{})
			if data == nil {
				data = map[string]interface{}{}
			}
			return data
		}
	}
}

func TestTypingRelayOverWebSocket(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", 100001)
	bob := createTestUser(t, db, "bob", 100002)
	makeContacts(t, db, alice.ID, bob.ID)

	chatRepo := repository.NewChatRepository(db, nil)
	chat, err := chatRepo.CreateChatWithParticipants(alice.ID, bob.ID)
	require.NoError(t, err)

	hub := NewPresenceHub(nil,
		chatRepo,
		repository.NewContactRepository(db, nil),
		repository.NewSettingsRepository(db),
	)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseUint(r.URL.Query().Get("uid"), 10, 32)
		ServeWs(hub, w, r, uint(uid))
	}))
	defer srv.Close()

	dial := func(uid uint) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/?uid=%d", uid)
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}
	aliceConn := dial(alice.ID)
	defer aliceConn.Close()
	bobConn := dial(bob.ID)
	defer bobConn.Close()

	require.Eventually(t, func() bool {
		return hub.IsUserOnline(alice.ID) && hub.IsUserOnline(bob.ID)
	}, 2*time.Second, 10*time.Millisecond)

	// 正在输入提示转发给会话内其他成员，并带上发送者
	typing := fmt.Sprintf(`{"type":"TYPING","data":{"chatId":%q}}`, chat.ID)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(typing)))

	data := waitForType(bobConn, "TYPING", 2*time.Second)
	require.NotNil(t, data, "对端应收到正在输入提示")
	assert.Equal(t, chat.ID, data["chatId"])
	assert.EqualValues(t, float64(alice.ID), data["userId"])

	// 缺 type 的帧不能继承上一帧的类型被当作 TYPING 转发
	untyped := fmt.Sprintf(`{"data":{"chatId":%q}}`, chat.ID)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(untyped)))

	data = waitForType(bobConn, "TYPING", 700*time.Millisecond)
	assert.Nil(t, data, "没有类型的帧不应被转发")
}
