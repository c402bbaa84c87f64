package auth

import "time"

// TokenPair 封裝 access/refresh token。
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// AccessValid access token 是否尚未過期。
func (t TokenPair) AccessValid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.AccessExpiry)
}

// PasswordReset 紀錄密碼重設 token 與有效期限。
type PasswordReset struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable 檢查重設 token 是否仍可使用。
func (p PasswordReset) Usable(now time.Time) bool {
	if p.ExpiresAt.Before(now) {
		return false
	}
	if p.UsedAt != nil && !p.UsedAt.IsZero() {
		return false
	}
	return true
}
