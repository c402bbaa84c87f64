package auth

import (
	"context"
	"errors"
	"testing"

	domain "storefront/internal/domain/auth"
)

type fakeProvider struct {
	identity Identity
	err      error
}

func (f fakeProvider) Exchange(_ context.Context, _ domain.Provider, _ string) (Identity, error) {
	if f.err != nil {
		return Identity{}, f.err
	}
	return f.identity, nil
}

func TestOAuth_FirstLoginCreatesUser(t *testing.T) {
	repo := newFakeUserRepo()
	provider := fakeProvider{identity: Identity{
		Provider:   domain.ProviderGoogle,
		ProviderID: "g-42",
		Email:      "OAuth@Example.com",
		Name:       "OAuth User",
	}}
	uc := NewOAuthUseCase(repo, provider, &fakeTokens{pair: domain.TokenPair{AccessToken: "a"}})

	res, err := uc.Execute(context.Background(), OAuthInput{Provider: domain.ProviderGoogle, Code: "code-1"})
	if err != nil {
		t.Fatalf("oauth login failed: %v", err)
	}
	if res.User.Provider != domain.ProviderGoogle || res.User.ProviderID != "g-42" {
		t.Errorf("unexpected user: %+v", res.User)
	}
	if res.User.Email != "oauth@example.com" {
		t.Errorf("email not normalized: %q", res.User.Email)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected user created, got %d", len(repo.created))
	}

	// 第二次登入應使用既有帳號。
	res2, err := uc.Execute(context.Background(), OAuthInput{Provider: domain.ProviderGoogle, Code: "code-2"})
	if err != nil {
		t.Fatalf("second oauth login failed: %v", err)
	}
	if res2.User.ID != res.User.ID {
		t.Error("expected existing account to be reused")
	}
	if len(repo.created) != 1 {
		t.Errorf("expected no additional create, got %d", len(repo.created))
	}
}

func TestOAuth_Failures(t *testing.T) {
	uc := NewOAuthUseCase(newFakeUserRepo(), fakeProvider{}, &fakeTokens{})

	if _, err := uc.Execute(context.Background(), OAuthInput{Provider: "twitter", Code: "c"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), OAuthInput{Provider: domain.ProviderGitHub}); err == nil {
		t.Error("expected error for missing code")
	}

	failing := NewOAuthUseCase(newFakeUserRepo(), fakeProvider{err: errors.New("denied")}, &fakeTokens{})
	if _, err := failing.Execute(context.Background(), OAuthInput{Provider: domain.ProviderGitHub, Code: "c"}); err == nil {
		t.Error("expected exchange error to propagate")
	}
}
