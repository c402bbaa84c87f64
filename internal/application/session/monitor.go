package session

import (
	"context"
	"log"
	"time"

	domain "storefront/internal/domain/session"
	"storefront/internal/infrastructure/sessionstore"
)

// Start 啟動 Expiry Evaluator 輪詢迴圈：啟動後立即評估一次，
// 之後依固定間隔重新評估。重複呼叫無效果。
func (l *Lifecycle) Start() {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	log.Printf("[Session] monitor started session_id=%s poll=%v timeout=%v lead=%v",
		l.id, l.cfg.PollInterval, l.cfg.Thresholds.Timeout, l.cfg.Thresholds.WarningLead)
	ticker := time.NewTicker(l.cfg.PollInterval)
	go func() {
		ctx := context.Background()
		l.EvaluateNow(ctx)

		for {
			select {
			case <-ticker.C:
				l.EvaluateNow(ctx)
			case <-l.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop 確定性卸除：停止輪詢並取消自動登出倒數。
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = false
	l.stopped = true
	l.mu.Unlock()

	close(l.stopChan)
	l.cancelCountdown()
	log.Printf("[Session] monitor stopped session_id=%s", l.id)
}

// EvaluateNow 執行單次狀態評估並回傳結果。
//
// 首次觀察（有登入快照但尚無活動紀錄）時播種 lastActivity=now 並
// 維持 Active，避免剛登入就誤發預警。
func (l *Lifecycle) EvaluateNow(ctx context.Context) domain.Status {
	now := l.now()
	snap := l.snapshot(ctx)

	last, ok, err := l.lastActivity(ctx)
	if err != nil {
		l.reporter.Report(ctx, "read lastActivity", err)
	}
	if !ok {
		if !snap.Armed() {
			// 未登入：不評估、不轉移。
			l.mu.Lock()
			st := l.status
			l.mu.Unlock()
			return st
		}
		if err := l.writeActivity(ctx, now); err != nil {
			l.reporter.Report(ctx, "seed lastActivity", err)
		}
		last = now
	}

	idle := now.Sub(last)
	status := domain.Status{
		State:           l.cfg.Thresholds.Evaluate(idle),
		LastActivityAt:  last,
		TimeUntilExpiry: l.cfg.Thresholds.TimeUntilExpiry(idle),
		EvaluatedAt:     now,
	}

	l.mu.Lock()
	prev := l.status.State
	l.status = status
	userID := l.creds.UserID
	l.mu.Unlock()

	transitioned := prev != status.State
	if transitioned {
		log.Printf("[Session] state change session_id=%s %s -> %s idle=%v", l.id, prev, status.State, idle)
		switch status.State {
		case domain.StateExpired:
			l.startCountdown()
		case domain.StateActive:
			l.cancelCountdown()
		}
	}
	// Warning 期間每次評估都推播，讓倒數顯示跟上。
	if transitioned || status.State == domain.StateWarning {
		l.notify(Event{SessionID: l.id, UserID: userID, Status: status})
	}
	return status
}

// Refresh 使用者確認「保持登入」：以記憶體中的資料回寫跨分頁儲存、
// 重置活動時間並回到 Active。資料不齊時視為不可回復，改走強制登出。
func (l *Lifecycle) Refresh(ctx context.Context) error {
	l.mu.Lock()
	creds := l.creds
	l.mu.Unlock()

	if !creds.Valid() {
		_ = l.ForceLogout(ctx)
		return domain.ErrSessionDataMissing
	}

	if err := l.shared.Set(ctx, sessionstore.KeyUser, creds.UserJSON); err != nil {
		l.reporter.Report(ctx, "refresh rewrite user", err)
		return err
	}
	if err := l.shared.Set(ctx, sessionstore.KeyToken, creds.Token); err != nil {
		l.reporter.Report(ctx, "refresh rewrite token", err)
		return err
	}

	now := l.now()
	if err := l.writeActivity(ctx, now); err != nil {
		l.reporter.Report(ctx, "refresh reset activity", err)
		return err
	}

	l.cancelCountdown()
	status := domain.Status{
		State:           domain.StateActive,
		LastActivityAt:  now,
		TimeUntilExpiry: l.cfg.Thresholds.Timeout,
		EvaluatedAt:     now,
	}
	l.mu.Lock()
	l.status = status
	l.mu.Unlock()

	log.Printf("[Session] refreshed session_id=%s user_id=%s", l.id, creds.UserID)
	l.notify(Event{SessionID: l.id, UserID: creds.UserID, Status: status})
	return nil
}

// ForceLogout 清除兩層儲存並呼叫認證端登出效果。可重複呼叫：
// 已登出時再次呼叫不回傳錯誤。儲存層錯誤交給 reporter 後繼續。
func (l *Lifecycle) ForceLogout(ctx context.Context) error {
	l.cancelCountdown()

	l.mu.Lock()
	already := l.loggedOut
	creds := l.creds
	l.loggedOut = true
	l.creds = Credentials{}
	prev := l.status.State
	now := l.now()
	status := domain.Status{State: domain.StateExpired, EvaluatedAt: now}
	l.status = status
	l.mu.Unlock()

	if err := l.tab.Clear(ctx); err != nil {
		l.reporter.Report(ctx, "clear tab storage", err)
	}
	if err := l.shared.Clear(ctx); err != nil {
		l.reporter.Report(ctx, "clear shared storage", err)
	}

	if !already && l.auth != nil && creds.UserID != "" {
		if err := l.auth.Logout(ctx, creds.UserID); err != nil {
			l.reporter.Report(ctx, "auth logout", err)
		}
		log.Printf("[Session] forced logout session_id=%s user_id=%s", l.id, creds.UserID)
	}

	if prev != domain.StateExpired {
		l.notify(Event{SessionID: l.id, UserID: creds.UserID, Status: status})
	}
	return nil
}

func (l *Lifecycle) startCountdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countdown != nil {
		return
	}
	grace := l.cfg.LogoutGrace
	l.countdown = time.AfterFunc(grace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("[Session] auto-logout countdown elapsed session_id=%s grace=%v", l.id, grace)
		if err := l.ForceLogout(ctx); err != nil {
			l.reporter.Report(ctx, "auto logout", err)
		}
	})
}

func (l *Lifecycle) cancelCountdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countdown != nil {
		l.countdown.Stop()
		l.countdown = nil
	}
}
