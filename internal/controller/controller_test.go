package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wispa_backend/internal/config"
	"wispa_backend/internal/middleware"
	"wispa_backend/internal/repository"
	"wispa_backend/internal/service"
	"wispa_backend/pkg/database"
	"wispa_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret!"
	cfg.JWT.ExpireTime = 3600000000000
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()

	userRepo := repository.NewUserRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	contactRepo := repository.NewContactRepository(db, nil)
	chatRepo := repository.NewChatRepository(db, nil)

	storage := service.NewStorageService(cfg)
	hub := service.NewPresenceHub(nil, chatRepo, contactRepo, settingsRepo)

	authC := NewAuthController(service.NewAuthService(userRepo, cfg))
	profileC := NewProfileController(service.NewProfileService(userRepo, settingsRepo, storage), contactRepo, hub)
	contactC := NewContactController(service.NewContactService(contactRepo, userRepo), hub)
	chatC := NewChatController(service.NewChatService(chatRepo, contactRepo, storage, hub), hub)
	settingsC := NewSettingsController(service.NewProfileService(userRepo, settingsRepo, storage))

	router := gin.New()
	router.POST("/api/register", authC.Register)
	router.POST("/api/login", authC.Login)

	auth := router.Group("/api")
	auth.Use(middleware.AuthMiddleware(cfg))
	{
		auth.GET("/profile", profileC.GetProfile)
		auth.PUT("/profile", profileC.UpdateProfile)
		auth.GET("/users/search", profileC.SearchByCode)
		auth.GET("/users/:id", profileC.GetUserCard)
		auth.GET("/settings", settingsC.GetSettings)
		auth.PUT("/settings", settingsC.UpdateSettings)
		auth.GET("/contacts", contactC.ListContacts)
		auth.GET("/contact-requests", contactC.ListRequests)
		auth.POST("/contact-requests", contactC.SendRequest)
		auth.PUT("/contact-requests/:id", contactC.HandleRequest)
		auth.POST("/chats", chatC.StartChat)
		auth.GET("/chats", chatC.ListChats)
		auth.POST("/chats/:id/messages", chatC.SendMessage)
		auth.GET("/chats/:id/messages", chatC.GetMessages)
	}
	return router
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func registerAndLogin(t *testing.T, router *gin.Engine, name string) (token string, userID uint, userCode uint) {
	t.Helper()

	w, _ := doJSON(t, router, "POST", "/api/register", "", gin.H{
		"fullName": name,
		"email":    fmt.Sprintf("%s@example.com", name),
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, router, "POST", "/api/login", "", gin.H{
		"email":    fmt.Sprintf("%s@example.com", name),
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Token string `json:"token"`
		User  struct {
			ID       uint `json:"id"`
			UserCode uint `json:"userCode"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token, data.User.ID, data.User.UserCode
}

func TestRegisterValidation(t *testing.T) {
	router := setupTestServer(t)

	// 密码太短
	w, _ := doJSON(t, router, "POST", "/api/register", "", gin.H{
		"fullName": "Alice",
		"email":    "alice@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 正常注册
	w, _ = doJSON(t, router, "POST", "/api/register", "", gin.H{
		"fullName": "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// 重复邮箱
	w, _ = doJSON(t, router, "POST", "/api/register", "", gin.H{
		"fullName": "Alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProfileRequiresAuth(t *testing.T) {
	router := setupTestServer(t)

	w, _ := doJSON(t, router, "GET", "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, "GET", "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileRoundTrip(t *testing.T) {
	router := setupTestServer(t)
	token, _, _ := registerAndLogin(t, router, "alice")

	w, env := doJSON(t, router, "GET", "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		FullName string `json:"fullName"`
		Theme    string `json:"theme"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice", profile.FullName)
	assert.Equal(t, "light", profile.Theme)

	w, env = doJSON(t, router, "PUT", "/api/profile", token, gin.H{
		"statusMessage": "hello there",
		"theme":         "dark",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		StatusMessage string `json:"statusMessage"`
		Theme         string `json:"theme"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "hello there", updated.StatusMessage)
	assert.Equal(t, "dark", updated.Theme)
}

func TestContactAndChatFlow(t *testing.T) {
	router := setupTestServer(t)
	aliceToken, _, _ := registerAndLogin(t, router, "alice")
	bobToken, bobID, bobCode := registerAndLogin(t, router, "bob")

	// 按用户码搜索
	w, env := doJSON(t, router, "GET", fmt.Sprintf("/api/users/search?code=%d", bobCode), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var search struct {
		Status string `json:"status"`
		User   struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &search))
	assert.Equal(t, "none", search.Status)
	assert.Equal(t, bobID, search.User.ID)

	// 非联系人发起会话：转为发送请求，不建会话
	w, env = doJSON(t, router, "POST", "/api/chats", aliceToken, gin.H{"userId": bobID})
	require.Equal(t, http.StatusOK, w.Code)
	var started struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.Equal(t, "request_sent", started.State)

	// bob 收到请求并接受
	w, env = doJSON(t, router, "GET", "/api/contact-requests", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var requests []struct {
		EdgeID string `json:"edgeId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &requests))
	require.Len(t, requests, 1)

	w, _ = doJSON(t, router, "PUT", "/api/contact-requests/"+requests[0].EdgeID, bobToken, gin.H{"accept": true})
	require.Equal(t, http.StatusOK, w.Code)

	// 现在可以建会话并发消息
	w, env = doJSON(t, router, "POST", "/api/chats", aliceToken, gin.H{"userId": bobID})
	require.Equal(t, http.StatusOK, w.Code)
	var chatResult struct {
		State string `json:"state"`
		Chat  struct {
			ID string `json:"id"`
		} `json:"chat"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chatResult))
	require.Equal(t, "chat", chatResult.State)
	require.NotEmpty(t, chatResult.Chat.ID)

	w, _ = doJSON(t, router, "POST", "/api/chats/"+chatResult.Chat.ID+"/messages", aliceToken, gin.H{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	// bob 读取历史
	w, env = doJSON(t, router, "GET", "/api/chats/"+chatResult.Chat.ID+"/messages", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi bob", msgs[0].Content)

	// 第三方不能读
	carolToken, _, _ := registerAndLogin(t, router, "carol")
	w, _ = doJSON(t, router, "GET", "/api/chats/"+chatResult.Chat.ID+"/messages", carolToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserCardAndSearchMiss(t *testing.T) {
	router := setupTestServer(t)
	aliceToken, _, aliceCode := registerAndLogin(t, router, "alice")
	_, bobID, bobCode := registerAndLogin(t, router, "bob")

	// 公开名片不暴露邮箱
	w, env := doJSON(t, router, "GET", fmt.Sprintf("/api/users/%d", bobID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var card struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &card))
	assert.Equal(t, "bob", card.FullName)
	assert.Empty(t, card.Email)

	// 无匹配的用户码是空结果，不是错误
	probe := uint(100000)
	for probe == aliceCode || probe == bobCode {
		probe++
	}
	w, env = doJSON(t, router, "GET", fmt.Sprintf("/api/users/search?code=%d", probe), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var search struct {
		User   json.RawMessage `json:"user"`
		Status string          `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &search))
	assert.Equal(t, "none", search.Status)
	assert.Equal(t, "null", string(search.User))
}

func TestSettingsRoundTrip(t *testing.T) {
	router := setupTestServer(t)
	token, _, _ := registerAndLogin(t, router, "alice")

	w, env := doJSON(t, router, "GET", "/api/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings struct {
		OnlineStatusEnabled bool `json:"onlineStatusEnabled"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.True(t, settings.OnlineStatusEnabled)

	w, env = doJSON(t, router, "PUT", "/api/settings", token, gin.H{"onlineStatusEnabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.False(t, settings.OnlineStatusEnabled)
}
