package session

import "errors"

var (
	// ErrInvalidTimeout 逾時設定必須為正值。
	ErrInvalidTimeout = errors.New("session timeout must be positive")
	// ErrInvalidWarningLead 預警提前量必須落在 [0, timeout)。
	ErrInvalidWarningLead = errors.New("warning lead must be within [0, timeout)")
	// ErrNotArmed 尚未登入（user/token 不齊），不進行追蹤。
	ErrNotArmed = errors.New("session not armed")
	// ErrSessionDataMissing refresh 時找不到有效的 session 資料。
	ErrSessionDataMissing = errors.New("session data missing or invalid")
)
