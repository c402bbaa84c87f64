package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authApp "storefront/internal/application/auth"
)

// requireAuth 驗證 Bearer token 並檢查權限，通過後把使用者資訊放進 context。
func (s *Server) requireAuth(perms ...authApp.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := parseBearer(c.GetHeader("Authorization"))
		if token == "" {
			// SPA 重新整理後可能只剩 cookie。
			token, _ = c.Cookie("access_token")
		}
		if token == "" {
			abortError(c, http.StatusUnauthorized, errCodeUnauthorized, "missing access token")
			return
		}

		claims, err := s.tokenSvc.ParseAccessToken(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
			return
		}

		result, err := s.authz.Authorize(c.Request.Context(), authApp.AuthorizeInput{
			UserID:   claims.UserID,
			Required: perms,
		})
		if err != nil {
			abortError(c, http.StatusUnauthorized, errCodeUnauthorized, "user lookup failed")
			return
		}
		if !result.Allowed {
			abortError(c, http.StatusForbidden, errCodeForbidden, result.Reason)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// requireCSRF 驗證改變狀態的請求附帶正確的 CSRF token。
// token 以 session 為範圍，經 GET /api/auth/csrf 取得。
func (s *Server) requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(sessionHeader)
		token := c.GetHeader(csrfHeader)
		if sessionID == "" || token == "" {
			abortError(c, http.StatusForbidden, errCodeForbidden, "missing csrf token")
			return
		}
		if !s.csrf.Validate(sessionID, token) {
			abortError(c, http.StatusForbidden, errCodeForbidden, "csrf token mismatch")
			return
		}
		c.Next()
	}
}

// loginLimiter 依來源 IP 限制登入嘗試頻率。
type loginLimiter struct {
	mu       sync.Mutex
	perIP    map[string]*rate.Limiter
	ratePerS rate.Limit
	burst    int
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{
		perIP:    make(map[string]*rate.Limiter),
		ratePerS: rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perIP[ip]
	if !ok {
		lim = rate.NewLimiter(l.ratePerS, l.burst)
		l.perIP[ip] = lim
	}
	return lim.Allow()
}

func (s *Server) rateLimitLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !s.limiter.allow(ip) {
			log.Printf("[HTTP] login rate limited ip=%s", ip)
			abortError(c, http.StatusTooManyRequests, errCodeRateLimited, "too many login attempts")
			return
		}
		c.Next()
	}
}

func (s *Server) ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), latency.Seconds())

		if raw != "" {
			path = path + "?" + raw
		}

		log.Printf("[GIN] %v | %3d | %13v | %-7s %s",
			start.Format("2006/01/02 - 15:04:05"),
			status,
			latency,
			c.Request.Method,
			path,
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Session-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
