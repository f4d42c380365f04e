package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	auth := NewAuthenticator("secret", "semlayer")
	user := domain.SessionUser{
		UserUUID:         "u1",
		Email:            "u1@example.com",
		OrganizationUUID: "org-1",
		OrganizationRole: domain.RoleEditor,
		ProjectRoles:     map[string]domain.Role{"p1": domain.RoleAdmin},
	}

	token, err := auth.IssueToken(user, time.Minute)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, claims.User())
}

func TestAuthenticator_Rejects(t *testing.T) {
	auth := NewAuthenticator("secret", "semlayer")
	valid := func() SessionClaims {
		return SessionClaims{
			OrganizationUUID: "org-1",
			Role:             domain.RoleViewer,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				Issuer:    "semlayer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noSubject := valid()
	noSubject.Subject = ""

	badRole := valid()
	badRole.Role = "owner"

	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", sign(t, jwt.SigningMethodHS256, []byte("secret"), expired), ErrTokenExpired},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), valid()), ErrTokenInvalid},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte("secret"), valid()), ErrTokenInvalid},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte("secret"), noSubject), ErrTokenInvalid},
		{"unknown role", sign(t, jwt.SigningMethodHS256, []byte("secret"), badRole), ErrTokenInvalid},
		{"other issuer", sign(t, jwt.SigningMethodHS256, []byte("secret"), otherIssuer), ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate_Middleware(t *testing.T) {
	auth := NewAuthenticator("secret", "")
	token, err := auth.IssueToken(domain.SessionUser{UserUUID: "u1", OrganizationUUID: "org-1"}, time.Minute)
	require.NoError(t, err)

	var seen domain.SessionUser
	var gotErr error
	h := auth.Authenticate(func(w http.ResponseWriter, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u1", seen.UserUUID)
	assert.NoError(t, gotErr)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	appErr, ok := apperrors.As(gotErr)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appErr.Code)
}
