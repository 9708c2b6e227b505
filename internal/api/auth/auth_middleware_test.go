package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reccalc/app/observability/metrics"
	"reccalc/internal/types"
)

func TestAuthenticate(t *testing.T) {
	metrics.InitAppMetrics()

	tokens, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	middleware := Authenticate(slog.Default(), tokens)

	var gotUserID, gotRole, gotEmail string
	var nextCalled bool
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotRole, _ = GetUserRoleFromContext(r.Context())
		gotEmail, _ = GetUserEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(authHeader string) *httptest.ResponseRecorder {
		nextCalled = false
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("MissingHeader", func(t *testing.T) {
		rr := doRequest("")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, nextCalled)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		rr := doRequest("NotBearer something")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, nextCalled)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		rr := doRequest("Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, nextCalled)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		signed, err := tokens.Issue(testUser(), -time.Minute)
		require.NoError(t, err)

		rr := doRequest("Bearer " + signed)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, nextCalled)
	})

	t.Run("ValidToken", func(t *testing.T) {
		user := testUser()
		signed, err := tokens.Issue(user, time.Minute)
		require.NoError(t, err)

		rr := doRequest("Bearer " + signed)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, nextCalled)
		assert.Equal(t, user.ID.String(), gotUserID)
		assert.Equal(t, types.RoleUser, gotRole)
		assert.Equal(t, user.Email, gotEmail)
	})
}
