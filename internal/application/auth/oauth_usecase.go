package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/domain/auth"
)

// Identity 為 OAuth 提供者回傳的身分資料。
type Identity struct {
	Provider   auth.Provider
	ProviderID string
	Email      string
	Name       string
}

// ProviderClient 以授權碼向提供者換取身分資料。
type ProviderClient interface {
	Exchange(ctx context.Context, provider auth.Provider, code string) (Identity, error)
}

// ErrUnsupportedProvider 不支援的 OAuth 提供者。
var ErrUnsupportedProvider = errors.New("unsupported oauth provider")

// OAuthUseCase 處理第三方登入：換碼、找或建帳號、簽發 token。
type OAuthUseCase struct {
	users    UserRepository
	provider ProviderClient
	tokens   TokenIssuer
}

func NewOAuthUseCase(users UserRepository, provider ProviderClient, tokens TokenIssuer) *OAuthUseCase {
	return &OAuthUseCase{users: users, provider: provider, tokens: tokens}
}

type OAuthInput struct {
	Provider  auth.Provider
	Code      string
	UserAgent string
	IP        string
}

func (uc *OAuthUseCase) Execute(ctx context.Context, input OAuthInput) (LoginResult, error) {
	var out LoginResult
	if input.Provider != auth.ProviderGoogle && input.Provider != auth.ProviderGitHub {
		return out, ErrUnsupportedProvider
	}
	if input.Code == "" {
		return out, errors.New("authorization code required")
	}

	identity, err := uc.provider.Exchange(ctx, input.Provider, input.Code)
	if err != nil {
		return out, fmt.Errorf("oauth exchange: %w", err)
	}

	user, err := uc.users.FindByProvider(ctx, identity.Provider, identity.ProviderID)
	if err != nil {
		// 首次登入：建立 OAuth 帳號。
		user = auth.User{
			ID:         uuid.NewString(),
			Email:      auth.NormalizeEmail(identity.Email),
			Name:       identity.Name,
			Role:       auth.RoleCustomer,
			Status:     auth.StatusActive,
			Provider:   identity.Provider,
			ProviderID: identity.ProviderID,
		}
		if err := user.Validate(); err != nil {
			return out, fmt.Errorf("oauth identity invalid: %w", err)
		}
		if err := uc.users.Create(ctx, user); err != nil {
			return out, fmt.Errorf("create oauth user: %w", err)
		}
	}
	if !user.IsActive() {
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
