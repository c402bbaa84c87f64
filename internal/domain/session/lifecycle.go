package session

import "time"

// State 表示 session 生命週期狀態。
type State string

const (
	StateActive  State = "active"
	StateWarning State = "warning"
	StateExpired State = "expired"
)

// Thresholds 定義逾時與預警參數。
type Thresholds struct {
	Timeout     time.Duration // 閒置多久視為過期
	WarningLead time.Duration // 過期前多久開始預警
}

// Validate 基本參數檢查。
func (t Thresholds) Validate() error {
	if t.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if t.WarningLead < 0 || t.WarningLead >= t.Timeout {
		return ErrInvalidWarningLead
	}
	return nil
}

// Evaluate 依閒置時間推導狀態：
//
//	idle <  Timeout-WarningLead -> Active
//	idle <  Timeout             -> Warning
//	idle >= Timeout             -> Expired
func (t Thresholds) Evaluate(idle time.Duration) State {
	switch {
	case idle >= t.Timeout:
		return StateExpired
	case idle >= t.Timeout-t.WarningLead:
		return StateWarning
	default:
		return StateActive
	}
}

// TimeUntilExpiry 回傳距離過期的剩餘時間，最小為 0。
func (t Thresholds) TimeUntilExpiry(idle time.Duration) time.Duration {
	remaining := t.Timeout - idle
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot 由跨分頁儲存推導的登入狀態，決定是否啟用追蹤。
type Snapshot struct {
	UserPresent  bool
	TokenPresent bool
}

// Armed 只有 user 與 token 同時存在才進行活動追蹤。
func (s Snapshot) Armed() bool {
	return s.UserPresent && s.TokenPresent
}

// Status 為單次評估的輸出，供 UI/推播端呈現。
type Status struct {
	State           State
	LastActivityAt  time.Time
	TimeUntilExpiry time.Duration
	EvaluatedAt     time.Time
}

// ShowWarning 是否應顯示預警倒數。
func (s Status) ShowWarning() bool {
	return s.State == StateWarning
}

// Expired 是否已過期。
func (s Status) Expired() bool {
	return s.State == StateExpired
}
