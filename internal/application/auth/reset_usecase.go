package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/domain/auth"
)

// ResetStore 儲存密碼重設 token。
type ResetStore interface {
	SavePasswordReset(ctx context.Context, reset auth.PasswordReset) error
	GetPasswordReset(ctx context.Context, token string) (auth.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, token string, usedAt time.Time) error
}

// MailSender 寄送密碼重設信；由 notify 模組實作。
type MailSender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// ErrResetTokenInvalid 重設 token 不存在、過期或已使用。
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

// PasswordResetUseCase 處理忘記密碼流程。
type PasswordResetUseCase struct {
	users  UserRepository
	resets ResetStore
	hasher PasswordHasher
	mailer MailSender
	ttl    time.Duration
	now    func() time.Time
}

func NewPasswordResetUseCase(users UserRepository, resets ResetStore, hasher PasswordHasher, mailer MailSender, ttl time.Duration) *PasswordResetUseCase {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PasswordResetUseCase{
		users:  users,
		resets: resets,
		hasher: hasher,
		mailer: mailer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Request 建立重設 token 並寄信。為避免帳號列舉，
// email 不存在時同樣回傳成功。
func (uc *PasswordResetUseCase) Request(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return errors.New("email required")
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		log.Printf("[Auth] password reset for unknown email=%s", email)
		return nil
	}
	if user.Provider != auth.ProviderLocal {
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := uc.now()
	reset := auth.PasswordReset{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(uc.ttl),
		CreatedAt: now,
	}
	if err := uc.resets.SavePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	if uc.mailer != nil {
		if err := uc.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
			return fmt.Errorf("send reset mail: %w", err)
		}
	}
	return nil
}

// Confirm 以 token 設定新密碼並標記 token 已使用。
func (uc *PasswordResetUseCase) Confirm(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	reset, err := uc.resets.GetPasswordReset(ctx, token)
	if err != nil {
		return ErrResetTokenInvalid
	}
	now := uc.now()
	if !reset.Usable(now) {
		return ErrResetTokenInvalid
	}

	hash, err := uc.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := uc.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := uc.resets.MarkPasswordResetUsed(ctx, token, now); err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	log.Printf("[Auth] password reset confirmed user_id=%s", reset.UserID)
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
