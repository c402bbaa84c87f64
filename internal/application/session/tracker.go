package session

import (
	"context"

	domain "storefront/internal/domain/session"
)

// RecordActivity 為 Activity Tracker 的入口：記錄一次合格的使用者互動。
//
// 規則依序套用：
//   - fromOverlay 的事件一律忽略（避免使用者讀取/關閉預警視窗時
//     意外重置計時）。
//   - 狀態為 Warning 或 Expired 時完全不受理（等同事件監聽已卸除，
//     任何環境活動都不得自動解除預警）。
//   - 未 Arm（user/token 不齊）時回傳 ErrNotArmed。
//
// 成功時僅寫入儲存，不做任何網路呼叫。
func (l *Lifecycle) RecordActivity(ctx context.Context, fromOverlay bool) error {
	if fromOverlay {
		return nil
	}

	l.mu.Lock()
	state := l.status.State
	l.mu.Unlock()
	if state == domain.StateWarning || state == domain.StateExpired {
		return nil
	}

	if !l.snapshot(ctx).Armed() {
		return domain.ErrNotArmed
	}

	if err := l.writeActivity(ctx, l.now()); err != nil {
		l.reporter.Report(ctx, "record activity", err)
		return err
	}
	return nil
}
