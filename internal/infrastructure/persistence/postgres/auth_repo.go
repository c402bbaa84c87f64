package postgres

import (
	"context"
	"database/sql"
	"time"

	authDomain "storefront/internal/domain/auth"
)

// AuthRepo 提供使用者、refresh session 與密碼重設 token 的存取。
type AuthRepo struct {
	db *sql.DB
}

// NewAuthRepo 建立 AuthRepo。
func NewAuthRepo(db *sql.DB) *AuthRepo {
	return &AuthRepo{db: db}
}

const userColumns = `id, email, display_name, role, status, provider, provider_id, password_hash`

func scanUser(row *sql.Row) (authDomain.User, error) {
	var u authDomain.User
	var role, status, provider string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &status, &provider, &u.ProviderID, &u.Password); err != nil {
		return authDomain.User{}, err
	}
	u.Role = authDomain.Role(role)
	u.Status = authDomain.Status(status)
	u.Provider = authDomain.Provider(provider)
	return u, nil
}

// FindByEmail 依 email 查詢使用者。
func (r *AuthRepo) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByID 依 ID 查詢使用者。
func (r *AuthRepo) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByProvider 依 OAuth 提供者識別碼查詢使用者。
func (r *AuthRepo) FindByProvider(ctx context.Context, provider authDomain.Provider, providerID string) (authDomain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_id = $2 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, string(provider), providerID))
}

// Create 新增使用者。
func (r *AuthRepo) Create(ctx context.Context, user authDomain.User) error {
	const q = `
INSERT INTO users (id, email, display_name, role, status, provider, provider_id, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.db.ExecContext(ctx, q,
		user.ID, user.Email, user.Name,
		string(user.Role), string(user.Status),
		string(user.Provider), user.ProviderID, user.Password)
	return err
}

// UpdatePassword 更新密碼雜湊。
func (r *AuthRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, userID, passwordHash)
	return err
}

// CountUsers 回傳使用者總數（儀表板用）。
func (r *AuthRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SaveSession 儲存 refresh session。
func (r *AuthRepo) SaveSession(ctx context.Context, sess authDomain.Session) error {
	const q = `
INSERT INTO sessions (token, user_id, expires_at, user_agent, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.ExecContext(ctx, q,
		sess.Token, sess.UserID, sess.ExpiresAt, sess.UserAgent, sess.IPAddress, sess.CreatedAt)
	return err
}

// GetSession 依 token 取得 session。
func (r *AuthRepo) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	const q = `
SELECT token, user_id, expires_at, revoked_at, user_agent, ip_address, created_at
FROM sessions WHERE token = $1 LIMIT 1;
`
	var s authDomain.Session
	var revoked sql.NullTime
	err := r.db.QueryRowContext(ctx, q, token).Scan(
		&s.Token, &s.UserID, &s.ExpiresAt, &revoked, &s.UserAgent, &s.IPAddress, &s.CreatedAt)
	if err != nil {
		return authDomain.Session{}, err
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return s, nil
}

// RevokeSession 撤銷單一 session。
func (r *AuthRepo) RevokeSession(ctx context.Context, token string) error {
	const q = `UPDATE sessions SET revoked_at = NOW() WHERE token = $1 AND revoked_at IS NULL;`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}

// RevokeUserSessions 撤銷使用者的全部 session（強制登出用）。
func (r *AuthRepo) RevokeUserSessions(ctx context.Context, userID string) error {
	const q = `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL;`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}

// SavePasswordReset 儲存密碼重設 token。
func (r *AuthRepo) SavePasswordReset(ctx context.Context, reset authDomain.PasswordReset) error {
	const q = `
INSERT INTO password_resets (token, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4);
`
	_, err := r.db.ExecContext(ctx, q, reset.Token, reset.UserID, reset.ExpiresAt, reset.CreatedAt)
	return err
}

// GetPasswordReset 依 token 取得重設紀錄。
func (r *AuthRepo) GetPasswordReset(ctx context.Context, token string) (authDomain.PasswordReset, error) {
	const q = `
SELECT token, user_id, expires_at, used_at, created_at
FROM password_resets WHERE token = $1 LIMIT 1;
`
	var p authDomain.PasswordReset
	var used sql.NullTime
	err := r.db.QueryRowContext(ctx, q, token).Scan(&p.Token, &p.UserID, &p.ExpiresAt, &used, &p.CreatedAt)
	if err != nil {
		return authDomain.PasswordReset{}, err
	}
	if used.Valid {
		p.UsedAt = &used.Time
	}
	return p, nil
}

// MarkPasswordResetUsed 標記重設 token 已使用。
func (r *AuthRepo) MarkPasswordResetUsed(ctx context.Context, token string, usedAt time.Time) error {
	const q = `UPDATE password_resets SET used_at = $2 WHERE token = $1 AND used_at IS NULL;`
	_, err := r.db.ExecContext(ctx, q, token, usedAt)
	return err
}
