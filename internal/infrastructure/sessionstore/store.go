package sessionstore

import (
	"context"
	"errors"
)

// 客戶端 session 資料的標準鍵名。
const (
	KeyUser         = "user"
	KeyToken        = "token"
	KeyLastActivity = "lastActivity" // epoch 毫秒字串
)

// ErrStoreUnavailable 儲存後端無法使用（連線失敗、配額超限等）。
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store 為單一命名空間下的 key-value 存取介面。
// Get 第二回傳值表示鍵是否存在；所有操作皆可能回傳儲存層錯誤。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear 移除命名空間下所有鍵；空儲存呼叫不視為錯誤。
	Clear(ctx context.Context) error
}

// Provider 依命名空間（client session ID 或 user ID）建立 Store。
type Provider interface {
	Namespace(id string) Store
}
