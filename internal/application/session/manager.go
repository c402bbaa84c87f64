package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/domain/reports"
	domain "storefront/internal/domain/session"
	"storefront/internal/infrastructure/sessionstore"
)

// ErrUnknownSession 指定的 client session 不存在或已卸除。
var ErrUnknownSession = errors.New("unknown client session")

// Manager 維護所有 client session 的 Lifecycle 實例。
// 分頁範圍儲存以 session ID 命名空間、跨分頁儲存以 user ID 命名空間，
// 對應瀏覽器端 sessionStorage / localStorage 的作用域差異。
type Manager struct {
	tabs     sessionstore.Provider
	shared   sessionstore.Provider
	cfg      Config
	auth     AuthCollaborator
	reporter ErrorReporter
	sinks    []Sink

	mu        sync.RWMutex
	lifecycle map[string]*Lifecycle
}

// NewManager 建立 Manager。
func NewManager(tabs, shared sessionstore.Provider, cfg Config, auth AuthCollaborator, reporter ErrorReporter, sinks ...Sink) *Manager {
	return &Manager{
		tabs:      tabs,
		shared:    shared,
		cfg:       cfg,
		auth:      auth,
		reporter:  reporter,
		sinks:     sinks,
		lifecycle: make(map[string]*Lifecycle),
	}
}

// Open 為登入成功的使用者建立並啟動追蹤實例，回傳 session ID。
func (m *Manager) Open(ctx context.Context, creds Credentials) (string, error) {
	id := uuid.NewString()
	lc, err := NewLifecycle(id, m.tabs.Namespace(id), m.shared.Namespace(creds.UserID), m.cfg, m.auth, m.reporter)
	if err != nil {
		return "", err
	}
	for _, sink := range m.sinks {
		lc.Subscribe(sink)
	}
	if err := lc.Arm(ctx, creds); err != nil {
		return "", err
	}
	lc.Start()

	m.mu.Lock()
	m.lifecycle[id] = lc
	m.mu.Unlock()
	return id, nil
}

// Get 取得追蹤實例。
func (m *Manager) Get(id string) (*Lifecycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lc, ok := m.lifecycle[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return lc, nil
}

// Close 卸除追蹤實例並強制登出。找不到時靜默返回（登出具冪等性）。
func (m *Manager) Close(ctx context.Context, id string) {
	m.mu.Lock()
	lc, ok := m.lifecycle[id]
	delete(m.lifecycle, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	lc.Stop()
	_ = lc.ForceLogout(ctx)
}

// Shutdown 停止所有實例（程序關閉用，不觸發登出副作用）。
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, lc := range m.lifecycle {
		lc.Stop()
		delete(m.lifecycle, id)
	}
}

// Stats 回傳儀表板用的狀態分佈。
func (m *Manager) Stats() reports.SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats reports.SessionStats
	for _, lc := range m.lifecycle {
		switch lc.Status().State {
		case domain.StateWarning:
			stats.Warning++
		case domain.StateExpired:
			stats.Expired++
		default:
			stats.Active++
		}
	}
	return stats
}
