package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"servicesync-server/config"
	"servicesync-server/models"
	"servicesync-server/types"
)

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func newTestAuthority(t *testing.T, users UserFinder) *TokenAuthority {
	t.Helper()
	ta, err := NewTokenAuthority(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}, users)
	if err != nil {
		t.Fatalf("new token authority: %v", err)
	}
	return ta
}

func TestNewTokenAuthorityRequiresKeys(t *testing.T) {
	_, err := NewTokenAuthority(config.JWTConfig{AccessSecret: "a"}, fakeUsers{})
	if !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
}

func TestIssueAndVerify(t *testing.T) {
	ta := newTestAuthority(t, fakeUsers{})
	user := &models.User{ID: 7, Role: models.RoleStoreOwner}

	pair, err := ta.IssuePair(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("expiresIn = %d", pair.ExpiresIn)
	}

	claims, err := ta.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleStoreOwner || claims.TokenType != types.TokenTypeAccess {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}

	if _, err := ta.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	ta := newTestAuthority(t, fakeUsers{})
	pair, err := ta.IssuePair(&models.User{ID: 1, Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := newTestAuthority(t, fakeUsers{})
	other.accessSecret = []byte("someone-else")

	cases := []struct {
		name  string
		check func() error
		want  error
	}{
		{"absent", func() error { _, err := ta.VerifyAccess(""); return err }, ErrTokenAbsent},
		{"garbage", func() error { _, err := ta.VerifyAccess("not.a.token"); return err }, ErrTokenInvalid},
		{"refresh used as access", func() error { _, err := ta.VerifyAccess(pair.RefreshToken); return err }, ErrTokenInvalid},
		{"access used as refresh", func() error { _, err := ta.VerifyRefresh(pair.AccessToken); return err }, ErrTokenInvalid},
		{"wrong key", func() error { _, err := other.VerifyAccess(pair.AccessToken); return err }, ErrTokenInvalid},
	}
	for _, tt := range cases {
		err := tt.check()
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, err, tt.want)
		}
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: %v should read as unauthenticated", tt.name, err)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	ta := newTestAuthority(t, fakeUsers{})
	issued := time.Now()
	ta.now = func() time.Time { return issued }
	pair, err := ta.IssuePair(&models.User{ID: 1, Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ta.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := ta.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired access token: got %v", err)
	}
	if _, err := ta.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh token should still be valid: %v", err)
	}
}

func TestRefreshUsesCurrentRole(t *testing.T) {
	users := fakeUsers{3: {ID: 3, Role: models.RoleCustomer}}
	ta := newTestAuthority(t, users)
	pair, err := ta.IssuePair(users[3])
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	users[3] = &models.User{ID: 3, Role: models.RoleSuperAdmin}
	next, user, err := ta.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if user.ID != 3 {
		t.Fatalf("refreshed user = %d", user.ID)
	}
	claims, err := ta.VerifyAccess(next.AccessToken)
	if err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
	if claims.Role != models.RoleSuperAdmin {
		t.Fatalf("refreshed role = %q", claims.Role)
	}
}

func TestRefreshSessionExpired(t *testing.T) {
	ta := newTestAuthority(t, fakeUsers{})
	pair, err := ta.IssuePair(&models.User{ID: 9, Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, token := range map[string]string{
		"missing user": pair.RefreshToken,
		"absent":       "",
		"access token": pair.AccessToken,
	} {
		if _, _, err := ta.Refresh(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("%s: got %v, want ErrSessionExpired", name, err)
		}
	}
}
