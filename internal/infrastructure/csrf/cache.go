package csrf

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenCache 快取每個會話的 CSRF token。
// 同一會話的並發請求經由 singleflight 合併，僅產生一次 token。
type TokenCache struct {
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
	mu     sync.RWMutex
	tokens map[string]entry
}

type entry struct {
	value     string
	expiresAt time.Time
}

// NewTokenCache 建立 CSRF token 快取；ttl 為 token 有效期限。
func NewTokenCache(ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenCache{
		ttl:    ttl,
		now:    time.Now,
		tokens: map[string]entry{},
	}
}

// Get 取得會話的 CSRF token；不存在或過期時重新產生。
func (c *TokenCache) Get(sessionID string) (string, error) {
	c.mu.RLock()
	e, ok := c.tokens[sessionID]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	v, err, _ := c.group.Do(sessionID, func() (interface{}, error) {
		c.mu.RLock()
		e, ok := c.tokens[sessionID]
		c.mu.RUnlock()
		if ok && c.now().Before(e.expiresAt) {
			return e.value, nil
		}

		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		token := hex.EncodeToString(buf)

		c.mu.Lock()
		c.tokens[sessionID] = entry{value: token, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Validate 驗證 token 是否與會話目前的 token 相符。
func (c *TokenCache) Validate(sessionID, token string) bool {
	if token == "" {
		return false
	}
	c.mu.RLock()
	e, ok := c.tokens[sessionID]
	c.mu.RUnlock()
	return ok && c.now().Before(e.expiresAt) && e.value == token
}

// Drop 移除會話的 token（登出時呼叫）。
func (c *TokenCache) Drop(sessionID string) {
	c.mu.Lock()
	delete(c.tokens, sessionID)
	c.mu.Unlock()
}
