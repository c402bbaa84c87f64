package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain/auth"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
	FindByProvider(ctx context.Context, provider auth.Provider, providerID string) (auth.User, error)
	Create(ctx context.Context, user auth.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PasswordHasher 產生/驗證密碼雜湊。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
	Hash(plain string) (string, error)
}

// TokenIssuer 簽發/撤銷 token。
type TokenIssuer interface {
	Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error)
	RevokeRefresh(ctx context.Context, token string) error
	RevokeUser(ctx context.Context, userID string) error
}

// ErrEmailTaken email 已註冊。
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials 帳密錯誤或帳號不可用。
var ErrInvalidCredentials = errors.New("invalid credentials")

// Permission 表示功能權限。
type Permission string

const (
	PermCatalogManage Permission = "catalog:manage"
	PermUserManage    Permission = "user:manage"
	PermDashboardView Permission = "dashboard:view"
	PermCartUse       Permission = "cart:use"
	PermReviewWrite   Permission = "review:write"
)

// RolePermissions 簡化權限表。
var RolePermissions = map[auth.Role][]Permission{
	auth.RoleAdmin: {
		PermCatalogManage,
		PermUserManage,
		PermDashboardView,
		PermCartUse,
		PermReviewWrite,
	},
	auth.RoleCustomer: {
		PermCartUse,
		PermReviewWrite,
	},
}

// AuthorizeInput 定義授權需求。
type AuthorizeInput struct {
	UserID   string
	Required []Permission
}

// AuthorizeResult 回傳授權結果。
type AuthorizeResult struct {
	Allowed bool
	Reason  string
}

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewLoginUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

type LoginResult struct {
	User  auth.User
	Token auth.TokenPair
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := auth.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return out, errors.New("email and password required")
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return out, fmt.Errorf("find user: %w", ErrInvalidCredentials)
	}
	if !user.IsActive() {
		return out, fmt.Errorf("user disabled or locked: %w", ErrInvalidCredentials)
	}
	if user.Provider != auth.ProviderLocal {
		return out, fmt.Errorf("oauth account requires provider login: %w", ErrInvalidCredentials)
	}
	if !uc.hasher.Compare(user.Password, input.Password) {
		return out, ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(ctx, user, auth.TokenMeta{UserAgent: input.UserAgent, IP: input.IP})
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

// RegisterUseCase 建立本地帳號。
type RegisterUseCase struct {
	users  UserRepository
	hasher PasswordHasher
}

func NewRegisterUseCase(users UserRepository, hasher PasswordHasher) *RegisterUseCase {
	return &RegisterUseCase{users: users, hasher: hasher}
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

func (uc *RegisterUseCase) Execute(ctx context.Context, input RegisterInput) (auth.User, error) {
	email := auth.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return auth.User{}, errors.New("email and password required")
	}
	if len(input.Password) < 8 {
		return auth.User{}, errors.New("password must be at least 8 characters")
	}
	if _, err := uc.users.FindByEmail(ctx, email); err == nil {
		return auth.User{}, ErrEmailTaken
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := auth.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     input.Name,
		Role:     auth.RoleCustomer,
		Status:   auth.StatusActive,
		Provider: auth.ProviderLocal,
		Password: hash,
	}
	if err := user.Validate(); err != nil {
		return auth.User{}, err
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return auth.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LogoutUseCase 處理 refresh token 作廢與整個使用者的 session 撤銷。
type LogoutUseCase struct {
	tokens TokenIssuer
}

func NewLogoutUseCase(tokens TokenIssuer) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token required")
	}
	return uc.tokens.RevokeRefresh(ctx, refreshToken)
}

// Logout 撤銷使用者全部 session；session 生命週期引擎的登出效果。
// 對已登出的使用者重複呼叫不視為錯誤。
func (uc *LogoutUseCase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return uc.tokens.RevokeUser(ctx, userID)
}

// Authorizer 檢查角色/權限。
type Authorizer struct {
	users UserRepository
}

func NewAuthorizer(users UserRepository) *Authorizer {
	return &Authorizer{users: users}
}

func (a *Authorizer) HasPermission(role auth.Role, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Authorize 檢查使用者是否具備所需權限。
func (a *Authorizer) Authorize(ctx context.Context, input AuthorizeInput) (AuthorizeResult, error) {
	user, err := a.users.FindByID(ctx, input.UserID)
	if err != nil {
		return AuthorizeResult{Allowed: false, Reason: "user not found"}, err
	}
	if !user.IsActive() {
		return AuthorizeResult{Allowed: false, Reason: "user disabled"}, nil
	}

	for _, perm := range input.Required {
		if !a.HasPermission(user.Role, perm) {
			return AuthorizeResult{Allowed: false, Reason: fmt.Sprintf("missing permission %s", perm)}, nil
		}
	}
	return AuthorizeResult{Allowed: true}, nil
}
