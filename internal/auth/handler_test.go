package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqanja/blog-api/internal/auth"
	"github.com/aqanja/blog-api/internal/platform/httpx"
	"github.com/aqanja/blog-api/internal/shared"
	_ "github.com/aqanja/blog-api/testing"
)

const testSecret = "test-secret"

func newRouter(t *testing.T) (http.Handler, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService(testSecret, time.Hour)
	guard := auth.NewMiddleware(tokens, nil)
	r := chi.NewRouter()
	r.Route("/api/auth", auth.NewHandler(nil, guard).MountRoutes)
	r.With(guard.Authenticate, guard.RequireAdmin).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r, tokens
}

func issue(t *testing.T, tokens *auth.TokenService, p shared.Principal) string {
	t.Helper()
	token, err := tokens.Issue(p)
	require.NoError(t, err)
	return token
}

func decodeProblem(t *testing.T, res *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&problem))
	return problem
}

func TestVerifyRoundTrip(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	token := issue(t, tokens, shared.Principal{ID: 7, Username: "ana", IsAdmin: true})

	principal, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, shared.Principal{ID: 7, Username: "ana", IsAdmin: true}, principal)
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	_, err := tokens.Verify("")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	other := auth.NewTokenService("other-secret", time.Hour)
	token := issue(t, other, shared.Principal{ID: 1, Username: "bob"})

	_, err := auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, shared.ErrInvalidCredential)
	assert.Equal(t, shared.KindInvalidCredential, shared.KindOf(err))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	claims := auth.Claims{
		ID:       1,
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, shared.ErrInvalidCredential)
}

func TestVerifyIgnoresCamelCaseAdminClaim(t *testing.T) {
	claims := jwt.MapClaims{"id": 3, "username": "eve", "isAdmin": true}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	principal, err := auth.NewTokenService(testSecret, time.Hour).Verify(token)
	require.NoError(t, err)
	assert.False(t, principal.IsAdmin)
}

func TestVerifyRejectsMissingID(t *testing.T) {
	claims := jwt.MapClaims{"username": "ghost"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, shared.ErrInvalidCredential)
}

func TestTokenFromRequestPrefersCustomHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer standard")
	req.Header.Set(auth.HeaderAuthToken, "custom")
	assert.Equal(t, "custom", auth.TokenFromRequest(req))

	req.Header.Del(auth.HeaderAuthToken)
	assert.Equal(t, "standard", auth.TokenFromRequest(req))
}

func TestCurrentUserRequiresToken(t *testing.T) {
	router, _ := newRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "No token, authorization denied", decodeProblem(t, res).Message)
}

func TestCurrentUserInvalidTokenDoesNotLeakDetail(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Token is not valid", decodeProblem(t, res).Message)
}

func TestCurrentUserReturnsPrincipal(t *testing.T) {
	router, tokens := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, tokens, shared.Principal{ID: 5, Username: "joe"}))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, float64(5), body["id"])
	assert.Equal(t, "joe", body["username"])
	assert.Equal(t, false, body["is_admin"])
}

func TestRequireAdmin(t *testing.T) {
	router, tokens := newRouter(t)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(auth.HeaderAuthToken, issue(t, tokens, shared.Principal{ID: 2, Username: "reader"}))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		require.Equal(t, http.StatusForbidden, res.Code)
		assert.Equal(t, "Access denied. Admin privileges required.", decodeProblem(t, res).Message)
	})

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(auth.HeaderAuthToken, issue(t, tokens, shared.Principal{ID: 1, Username: "root", IsAdmin: true}))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusNoContent, res.Code)
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})
}
