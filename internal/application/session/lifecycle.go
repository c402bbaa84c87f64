package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	domain "storefront/internal/domain/session"
	"storefront/internal/infrastructure/sessionstore"
)

// AuthCollaborator 由認證子系統提供的登出效果（撤銷 refresh session 等）。
type AuthCollaborator interface {
	Logout(ctx context.Context, userID string) error
}

// ErrorReporter 接收儲存層等致命錯誤；實作不得 panic。
type ErrorReporter interface {
	Report(ctx context.Context, op string, err error)
}

// LogReporter 以標準 log 輸出的預設 ErrorReporter。
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, op string, err error) {
	log.Printf("[Session] %s failed: %v", op, err)
}

// Credentials 為記憶體中已知有效的 session 資料，refresh 時回寫共享儲存。
type Credentials struct {
	UserJSON string // 序列化的使用者資料
	UserID   string
	Token    string
}

// Valid 檢查資料是否齊全。
func (c Credentials) Valid() bool {
	return c.UserJSON != "" && c.UserID != "" && c.Token != ""
}

// Config 定義生命週期追蹤參數。
type Config struct {
	Thresholds   domain.Thresholds
	PollInterval time.Duration // 固定輪詢間隔
	LogoutGrace  time.Duration // 過期後自動登出前的倒數
}

// Event 為狀態變化通知。
type Event struct {
	SessionID string
	UserID    string
	Status    domain.Status
}

// Sink 接收狀態變化事件（推播、metrics、audit）。
type Sink interface {
	SessionStateChanged(ev Event)
}

// Lifecycle 為單一 client session 的追蹤實例，組合 Activity Tracker
// 與 Expiry Evaluator。同一使用者的多個 session 各跑一個實例，
// 彼此間不做跨實例協調。
type Lifecycle struct {
	id       string
	tab      sessionstore.Store // 分頁範圍儲存（user/token/lastActivity）
	shared   sessionstore.Store // 跨分頁持久儲存（user/token）
	cfg      Config
	auth     AuthCollaborator
	reporter ErrorReporter
	now      func() time.Time

	mu        sync.Mutex
	status    domain.Status
	creds     Credentials
	loggedOut bool
	sinks     []Sink

	stopChan  chan struct{}
	started   bool
	stopped   bool
	countdown *time.Timer
}

// NewLifecycle 建立追蹤實例。reporter 為 nil 時使用 LogReporter。
func NewLifecycle(id string, tab, shared sessionstore.Store, cfg Config, auth AuthCollaborator, reporter ErrorReporter) (*Lifecycle, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.LogoutGrace <= 0 {
		cfg.LogoutGrace = 30 * time.Second
	}
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &Lifecycle{
		id:       id,
		tab:      tab,
		shared:   shared,
		cfg:      cfg,
		auth:     auth,
		reporter: reporter,
		now:      time.Now,
		status:   domain.Status{State: domain.StateActive},
		stopChan: make(chan struct{}),
	}, nil
}

// Subscribe 註冊狀態變化接收者。
func (l *Lifecycle) Subscribe(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// ID 回傳 session 識別碼。
func (l *Lifecycle) ID() string {
	return l.id
}

// UserID 回傳綁定的使用者識別碼；未 Arm 時為空。
func (l *Lifecycle) UserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creds.UserID
}

// Status 回傳最近一次評估結果。
func (l *Lifecycle) Status() domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Arm 於登入後寫入兩層儲存並播種活動時間。
func (l *Lifecycle) Arm(ctx context.Context, creds Credentials) error {
	if !creds.Valid() {
		return domain.ErrSessionDataMissing
	}
	l.mu.Lock()
	l.creds = creds
	l.loggedOut = false
	l.status = domain.Status{State: domain.StateActive, EvaluatedAt: l.now()}
	l.mu.Unlock()

	for _, st := range []sessionstore.Store{l.tab, l.shared} {
		if err := st.Set(ctx, sessionstore.KeyUser, creds.UserJSON); err != nil {
			return fmt.Errorf("arm session: %w", err)
		}
		if err := st.Set(ctx, sessionstore.KeyToken, creds.Token); err != nil {
			return fmt.Errorf("arm session: %w", err)
		}
	}
	return l.writeActivity(ctx, l.now())
}

// snapshot 讀取跨分頁儲存推導登入狀態。
func (l *Lifecycle) snapshot(ctx context.Context) domain.Snapshot {
	var snap domain.Snapshot
	if _, ok, err := l.shared.Get(ctx, sessionstore.KeyUser); err == nil {
		snap.UserPresent = ok
	} else {
		l.reporter.Report(ctx, "snapshot read user", err)
	}
	if _, ok, err := l.shared.Get(ctx, sessionstore.KeyToken); err == nil {
		snap.TokenPresent = ok
	} else {
		l.reporter.Report(ctx, "snapshot read token", err)
	}
	return snap
}

// lastActivity 讀取活動時間戳；不存在時回傳 zero time。
func (l *Lifecycle) lastActivity(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := l.tab.Get(ctx, sessionstore.KeyLastActivity)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse lastActivity %q: %w", raw, err)
	}
	return time.UnixMilli(millis), true, nil
}

// writeActivity 寫入活動時間戳，維持單調不遞減。
func (l *Lifecycle) writeActivity(ctx context.Context, at time.Time) error {
	if prev, ok, _ := l.lastActivity(ctx); ok && prev.After(at) {
		return nil
	}
	return l.tab.Set(ctx, sessionstore.KeyLastActivity, strconv.FormatInt(at.UnixMilli(), 10))
}

func (l *Lifecycle) notify(ev Event) {
	for _, sink := range l.sinks {
		sink.SessionStateChanged(ev)
	}
}
