package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/ledger"
	memstore "github.com/warp/payroll-engine/ledger/store"
)

func signToken(t *testing.T, secret, userID, role string) string {
	t.Helper()
	claims := api.ActorClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestActorMiddleware_JWT(t *testing.T) {
	const secret = "test-secret"

	var gotID, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotRole = api.ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := api.ActorMiddleware(secret)(inner)

	// Valid token: claims land on the context.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "u-1", "manager"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", gotID)
	assert.Equal(t, "manager", gotRole)

	// Missing header.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token signed with a different secret.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "u-1", "manager"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired token.
	expired := api.ActorClaims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(secret))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActorMiddleware_DevHeaders(t *testing.T) {
	// Empty secret disables token verification and trusts the headers.
	var gotID, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotRole = api.ActorFrom(r.Context())
	})
	handler := api.ActorMiddleware("")(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", "dev-1")
	req.Header.Set("X-Actor-Role", "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "dev-1", gotID)
	assert.Equal(t, "admin", gotRole)
}

func TestRoleAuthorizer(t *testing.T) {
	ctx := context.Background()
	mem := memstore.NewMemory()
	require.NoError(t, mem.SaveUser(ctx, ledger.User{ID: "mgr-1", Role: "manager"}))
	auth := api.RoleAuthorizer{Users: mem}

	cases := []struct {
		role string
		kind ledger.Kind
		want bool
	}{
		{"admin", ledger.KindPenalty, true},
		{"admin", ledger.KindAdvance, true},
		{"admin", ledger.KindBonus, true},
		{"admin", ledger.KindAdjustment, true},
		{"admin", ledger.KindDailyCredit, false}, // system kinds are never manual
		{"manager", ledger.KindPenalty, true},
		{"manager", ledger.KindBonus, true},
		{"manager", ledger.KindAdvance, false},
		{"manager", ledger.KindAdjustment, false},
		{"employee", ledger.KindBonus, false},
		{"", ledger.KindBonus, false},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+string(tc.kind), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.role != "" {
				req.Header.Set("X-Actor-Role", tc.role)
			}
			var rctx context.Context
			api.ActorMiddleware("")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				rctx = r.Context()
			})).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, auth.CanAuthorizeTransaction(rctx, "actor-1", tc.kind))
		})
	}
}

func TestRoleAuthorizer_DirectoryFallback(t *testing.T) {
	// Internal callers without middleware context fall back to the directory.
	ctx := context.Background()
	mem := memstore.NewMemory()
	require.NoError(t, mem.SaveUser(ctx, ledger.User{ID: "mgr-1", Role: "manager"}))
	auth := api.RoleAuthorizer{Users: mem}

	assert.True(t, auth.CanAuthorizeTransaction(ctx, "mgr-1", ledger.KindPenalty))
	assert.False(t, auth.CanAuthorizeTransaction(ctx, "mgr-1", ledger.KindAdvance))
	assert.False(t, auth.CanAuthorizeTransaction(ctx, "ghost", ledger.KindPenalty))
}
