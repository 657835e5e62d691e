package security

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	corsAllowHeaders = "Authorization, Content-Type, Accept, Origin, X-Requested-With"
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
)

// CORS 跨域中间件。凭据模式下不允许通配，只回显白名单内的 Origin；
// 白名单外的跨域请求不会拿到任何 CORS 头。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Max-Age", "7200")
				h.Add("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 基础安全响应头。/uploads 下是用户上传的头像和附件，
// nosniff 防止浏览器把附件内容当脚本执行。
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}

// ipLimiters 按客户端IP维护令牌桶，不活跃的条目由后台定期回收
type ipLimiters struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	fill    rate.Limit
	burst   int
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (s *ipLimiters) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(s.fill, s.burst)}
		s.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (s *ipLimiters) evictLoop(maxIdle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		for ip, e := range s.entries {
			if time.Since(e.lastSeen) > maxIdle {
				delete(s.entries, ip)
			}
		}
		s.mu.Unlock()
	}
}

// RateLimiter 按IP限流：窗口内最多 maxRequests 次请求，超出返回 429。
// 桶初始即满，允许等量突发。
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	store := &ipLimiters{
		entries: make(map[string]*ipEntry),
		fill:    rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
	}

	maxIdle := window * 3
	if maxIdle < time.Minute {
		maxIdle = time.Minute
	}
	go store.evictLoop(maxIdle)

	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *gin.Context) {
		if !store.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "请求过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
