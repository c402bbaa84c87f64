package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "storefront/internal/domain/session"
	"storefront/internal/infrastructure/sessionstore"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeAuth struct {
	mu      sync.Mutex
	logouts []string
}

func (a *fakeAuth) Logout(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logouts = append(a.logouts, userID)
	return nil
}

func (a *fakeAuth) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.logouts)
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(ctx context.Context, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// failingStore 包裝 Store，讓 Clear 固定失敗，模擬儲存被停用。
type failingStore struct {
	sessionstore.Store
}

func (f failingStore) Clear(ctx context.Context) error {
	return errors.New("storage disabled")
}

func testCreds() Credentials {
	return Credentials{UserJSON: `{"id":"u-1","email":"a@b.c"}`, UserID: "u-1", Token: "tok-1"}
}

func newTestLifecycle(t *testing.T, cfg Config) (*Lifecycle, *fakeClock, *fakeAuth) {
	t.Helper()
	if cfg.Thresholds.Timeout == 0 {
		cfg.Thresholds = domain.Thresholds{Timeout: 1800 * time.Second, WarningLead: 30 * time.Second}
	}
	tabs := sessionstore.NewMemoryProvider()
	shared := sessionstore.NewMemoryProvider()
	auth := &fakeAuth{}
	lc, err := NewLifecycle("sess-1", tabs.Namespace("sess-1"), shared.Namespace("u-1"), cfg, auth, nil)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	lc.now = clock.Now
	return lc, clock, auth
}

func TestRecordActivity_Monotonic(t *testing.T) {
	ctx := context.Background()
	lc, clock, _ := newTestLifecycle(t, Config{})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	start := clock.Now()
	clock.Advance(10 * time.Second)
	require.NoError(t, lc.RecordActivity(ctx, false))

	last, ok, err := lc.lastActivity(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start.Add(10*time.Second).UnixMilli(), last.UnixMilli())

	// 時鐘倒退時不得覆寫較新的時間戳。
	clock.Advance(-time.Hour)
	require.NoError(t, lc.RecordActivity(ctx, false))
	last2, _, _ := lc.lastActivity(ctx)
	assert.Equal(t, last.UnixMilli(), last2.UnixMilli(), "lastActivity must be non-decreasing")
}

func TestRecordActivity_NotArmed(t *testing.T) {
	ctx := context.Background()
	lc, _, _ := newTestLifecycle(t, Config{})

	err := lc.RecordActivity(ctx, false)
	assert.ErrorIs(t, err, domain.ErrNotArmed)

	if _, ok, _ := lc.lastActivity(ctx); ok {
		t.Error("no activity must be recorded while not armed")
	}
}

// Scenario C: 預警顯示期間，來自預警視窗的事件不得重置計時、
// 不得讓狀態離開 Warning。
func TestRecordActivity_IgnoredDuringWarning(t *testing.T) {
	ctx := context.Background()
	lc, clock, _ := newTestLifecycle(t, Config{})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	clock.Advance(1775 * time.Second)
	st := lc.EvaluateNow(ctx)
	require.Equal(t, domain.StateWarning, st.State)

	before, _, _ := lc.lastActivity(ctx)
	for i := 0; i < 10; i++ {
		assert.NoError(t, lc.RecordActivity(ctx, true))
	}
	// 即使不是來自視窗的事件，在 Warning 期間也等同監聽已卸除。
	assert.NoError(t, lc.RecordActivity(ctx, false))

	after, _, _ := lc.lastActivity(ctx)
	assert.Equal(t, before.UnixMilli(), after.UnixMilli())
	assert.Equal(t, domain.StateWarning, lc.Status().State)
}

// Scenario A: timeout=1800s、lead=30s 的門檻行為。
func TestEvaluateNow_Thresholds(t *testing.T) {
	ctx := context.Background()
	lc, clock, _ := newTestLifecycle(t, Config{})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	clock.Advance(1769 * time.Second)
	st := lc.EvaluateNow(ctx)
	assert.Equal(t, domain.StateActive, st.State)

	clock.Advance(2 * time.Second) // idle=1771s
	st = lc.EvaluateNow(ctx)
	assert.Equal(t, domain.StateWarning, st.State)
	assert.Equal(t, 29*time.Second, st.TimeUntilExpiry)

	clock.Advance(29 * time.Second) // idle=1800s
	st = lc.EvaluateNow(ctx)
	assert.Equal(t, domain.StateExpired, st.State)
	assert.Equal(t, time.Duration(0), st.TimeUntilExpiry)
}

// Scenario B: 剛登入、尚無活動紀錄時，首次評估必須播種並維持 Active。
func TestEvaluateNow_SeedsOnFirstObservation(t *testing.T) {
	ctx := context.Background()
	lc, clock, _ := newTestLifecycle(t, Config{})

	// 模擬登入只寫入跨分頁儲存，活動紀錄尚未播種。
	require.NoError(t, lc.shared.Set(ctx, sessionstore.KeyUser, `{"id":"u-1"}`))
	require.NoError(t, lc.shared.Set(ctx, sessionstore.KeyToken, "tok-1"))

	st := lc.EvaluateNow(ctx)
	assert.Equal(t, domain.StateActive, st.State)

	last, ok, err := lc.lastActivity(ctx)
	require.NoError(t, err)
	require.True(t, ok, "first observation must seed lastActivity")
	assert.Equal(t, clock.Now().UnixMilli(), last.UnixMilli())
}

func TestEvaluateNow_NotArmedDoesNothing(t *testing.T) {
	ctx := context.Background()
	lc, _, _ := newTestLifecycle(t, Config{})

	st := lc.EvaluateNow(ctx)
	assert.Equal(t, domain.StateActive, st.State)
	if _, ok, _ := lc.lastActivity(ctx); ok {
		t.Error("must not seed activity while not armed")
	}
}

// Scenario D / P4: 連續兩次強制登出結果一致且不報錯。
func TestForceLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	lc, _, auth := newTestLifecycle(t, Config{})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	require.NoError(t, lc.ForceLogout(ctx))
	require.NoError(t, lc.ForceLogout(ctx))

	for _, st := range []sessionstore.Store{lc.tab, lc.shared} {
		for _, k := range []string{sessionstore.KeyUser, sessionstore.KeyToken, sessionstore.KeyLastActivity} {
			if _, ok, _ := st.Get(ctx, k); ok {
				t.Errorf("key %s must be absent after logout", k)
			}
		}
	}
	assert.Equal(t, 1, auth.count(), "auth logout effect must fire exactly once")
}

// P5: refresh 後回到 Active、lastActivity=now、跨分頁儲存回填原值。
func TestRefresh_ResetsState(t *testing.T) {
	ctx := context.Background()
	lc, clock, _ := newTestLifecycle(t, Config{})
	creds := testCreds()
	require.NoError(t, lc.Arm(ctx, creds))

	clock.Advance(1780 * time.Second)
	require.Equal(t, domain.StateWarning, lc.EvaluateNow(ctx).State)

	require.NoError(t, lc.Refresh(ctx))

	st := lc.Status()
	assert.Equal(t, domain.StateActive, st.State)
	assert.Equal(t, clock.Now(), st.LastActivityAt)

	last, _, _ := lc.lastActivity(ctx)
	assert.Equal(t, clock.Now().UnixMilli(), last.UnixMilli())

	u, ok, _ := lc.shared.Get(ctx, sessionstore.KeyUser)
	require.True(t, ok)
	assert.Equal(t, creds.UserJSON, u)
	tok, ok, _ := lc.shared.Get(ctx, sessionstore.KeyToken)
	require.True(t, ok)
	assert.Equal(t, creds.Token, tok)
}

func TestRefresh_WithoutSessionData(t *testing.T) {
	ctx := context.Background()
	lc, _, auth := newTestLifecycle(t, Config{})

	err := lc.Refresh(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionDataMissing)
	// 無資料時不呼叫認證端（本來就沒有登入）。
	assert.Equal(t, 0, auth.count())
	assert.Equal(t, domain.StateExpired, lc.Status().State)
}

func TestAutoLogoutCountdown(t *testing.T) {
	ctx := context.Background()
	lc, clock, auth := newTestLifecycle(t, Config{
		Thresholds:  domain.Thresholds{Timeout: 100 * time.Millisecond, WarningLead: 10 * time.Millisecond},
		LogoutGrace: 20 * time.Millisecond,
	})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	clock.Advance(time.Second)
	st := lc.EvaluateNow(ctx)
	require.Equal(t, domain.StateExpired, st.State)

	assert.Eventually(t, func() bool { return auth.count() == 1 },
		time.Second, 5*time.Millisecond, "countdown must trigger forced logout")
}

func TestRefresh_CancelsCountdown(t *testing.T) {
	ctx := context.Background()
	lc, clock, auth := newTestLifecycle(t, Config{
		Thresholds:  domain.Thresholds{Timeout: 100 * time.Millisecond, WarningLead: 10 * time.Millisecond},
		LogoutGrace: 50 * time.Millisecond,
	})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	clock.Advance(time.Second)
	require.Equal(t, domain.StateExpired, lc.EvaluateNow(ctx).State)

	require.NoError(t, lc.Refresh(ctx))
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, auth.count(), "refresh must cancel the auto-logout countdown")
}

func TestForceLogout_StorageErrorReported(t *testing.T) {
	ctx := context.Background()
	lc, _, _ := newTestLifecycle(t, Config{})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	reporter := &recordingReporter{}
	lc.reporter = reporter
	lc.tab = failingStore{lc.tab}

	// 儲存清除失敗不可拋出，僅回報。
	require.NoError(t, lc.ForceLogout(ctx))
	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	assert.NotEmpty(t, reporter.errs)
}

func TestMonitor_StartStop(t *testing.T) {
	ctx := context.Background()
	lc, _, _ := newTestLifecycle(t, Config{PollInterval: 10 * time.Millisecond})
	require.NoError(t, lc.Arm(ctx, testCreds()))

	lc.Start()
	lc.Start() // 重複啟動無效果
	time.Sleep(30 * time.Millisecond)
	lc.Stop()
	lc.Stop() // 重複停止不 panic
}
