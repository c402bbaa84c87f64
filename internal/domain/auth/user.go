package auth

import (
	"errors"
	"strings"
)

// Role 定義商店系統角色。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusLocked   Status = "locked"
)

// Provider 表示第三方登入來源；本地帳密登入為 ProviderLocal。
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// User 基本帳號資料。
type User struct {
	ID         string
	Email      string
	Name       string
	Role       Role
	Status     Status
	Provider   Provider
	ProviderID string // OAuth 帳號在提供者端的識別碼
	Password   string // 雜湊後密碼；OAuth 帳號可為空
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	if u.Status == "" {
		return errors.New("status is required")
	}
	if u.Provider == ProviderLocal && u.Password == "" {
		return errors.New("local account requires password hash")
	}
	if u.Provider != ProviderLocal && u.ProviderID == "" {
		return errors.New("oauth account requires provider id")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// NormalizeEmail 統一 email 格式供查詢比對。
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
