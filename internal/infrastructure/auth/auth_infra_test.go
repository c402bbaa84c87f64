package authinfra

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/auth"
)

type mockSessionStore struct {
	sessions map[string]auth.Session
	revoked  []string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]auth.Session{}}
}

func (m *mockSessionStore) SaveSession(_ context.Context, sess auth.Session) error {
	m.sessions[sess.Token] = sess
	return nil
}
func (m *mockSessionStore) GetSession(_ context.Context, token string) (auth.Session, error) {
	return m.sessions[token], nil
}
func (m *mockSessionStore) RevokeSession(_ context.Context, token string) error {
	m.revoked = append(m.revoked, token)
	delete(m.sessions, token)
	return nil
}
func (m *mockSessionStore) RevokeUserSessions(_ context.Context, userID string) error {
	for token, sess := range m.sessions {
		if sess.UserID == userID {
			m.revoked = append(m.revoked, token)
			delete(m.sessions, token)
		}
	}
	return nil
}

type mockUserFinder struct{}

func (m *mockUserFinder) FindByID(_ context.Context, id string) (auth.User, error) {
	return auth.User{ID: id, Role: auth.RoleAdmin, Status: auth.StatusActive}, nil
}

func TestJWTIssuer_IssueAndParse(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour, time.Hour*24, newMockSessionStore(), &mockUserFinder{})
	user := auth.User{ID: "u-1", Role: auth.RoleAdmin}

	pair, err := issuer.Issue(context.Background(), user, auth.TokenMeta{})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := issuer.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken failed: %v", err)
	}

	if claims.UserID != "u-1" || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestJWTIssuer_RefreshRotatesSession(t *testing.T) {
	store := newMockSessionStore()
	issuer := NewJWTIssuer("secret", time.Hour, time.Hour*24, store, &mockUserFinder{})

	pair, err := issuer.Issue(context.Background(), auth.User{ID: "u-1", Role: auth.RoleAdmin}, auth.TokenMeta{})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	next, err := issuer.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("expected rotated refresh token")
	}
	if len(store.revoked) != 1 || store.revoked[0] != pair.RefreshToken {
		t.Errorf("expected old token revoked, got %v", store.revoked)
	}
}

func TestJWTIssuer_RevokeUser(t *testing.T) {
	store := newMockSessionStore()
	issuer := NewJWTIssuer("secret", time.Hour, time.Hour*24, store, &mockUserFinder{})

	if _, err := issuer.Issue(context.Background(), auth.User{ID: "u-1", Role: auth.RoleCustomer}, auth.TokenMeta{}); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := issuer.Issue(context.Background(), auth.User{ID: "u-1", Role: auth.RoleCustomer}, auth.TokenMeta{}); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := issuer.RevokeUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("RevokeUser failed: %v", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("expected all sessions revoked, %d left", len(store.sessions))
	}

	// 空 userID 視為 no-op
	if err := issuer.RevokeUser(context.Background(), ""); err != nil {
		t.Errorf("empty user id should be a no-op, got %v", err)
	}
}

func TestJWTIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour, time.Hour, newMockSessionStore(), &mockUserFinder{})
	other := NewJWTIssuer("different", time.Hour, time.Hour, newMockSessionStore(), &mockUserFinder{})

	pair, err := issuer.Issue(context.Background(), auth.User{ID: "u-1", Role: auth.RoleCustomer}, auth.TokenMeta{})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.ParseAccessToken(pair.AccessToken); err == nil {
		t.Error("expected parse failure with wrong secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{}
	pwd := "password123"
	hashed, err := h.Hash(pwd)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !h.Compare(hashed, pwd) {
		t.Error("Compare failed")
	}

	if h.Compare(hashed, "wrong") {
		t.Error("Compare should have failed")
	}
}
