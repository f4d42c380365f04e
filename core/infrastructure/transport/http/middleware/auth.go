package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/semlayer/semlayer/core/domain"
	sharedctx "github.com/semlayer/semlayer/core/shared/context"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

var (
	ErrTokenMissing = errors.New("authentication token missing")
	ErrTokenInvalid = errors.New("authentication token invalid")
	ErrTokenExpired = errors.New("authentication token expired")
)

type userContextKey struct{}

// SessionClaims are the JWT claims carrying a session user
type SessionClaims struct {
	Email            string                 `json:"email,omitempty"`
	OrganizationUUID string                 `json:"organizationUuid"`
	Role             domain.Role            `json:"role"`
	ProjectRoles     map[string]domain.Role `json:"projectRoles,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into a session user
func (c SessionClaims) User() domain.SessionUser {
	return domain.SessionUser{
		UserUUID:         c.Subject,
		Email:            c.Email,
		OrganizationUUID: c.OrganizationUUID,
		OrganizationRole: c.Role,
		ProjectRoles:     c.ProjectRoles,
	}
}

// Authenticator validates HS256 bearer tokens
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator returns an authenticator for the given signing secret.
// An empty issuer accepts tokens from any issuer.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// ExtractToken reads the bearer token from the Authorization header
func ExtractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// ValidateToken parses and verifies a token
func (a *Authenticator) ValidateToken(tokenString string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Role != "" && !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}

// IssueToken signs a session token for user, valid for ttl
func (a *Authenticator) IssueToken(user domain.SessionUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:            user.Email,
		OrganizationUUID: user.OrganizationUUID,
		Role:             user.OrganizationRole,
		ProjectRoles:     user.ProjectRoles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserUUID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate rejects requests without a valid session token and stores
// the session user in the request context
func (a *Authenticator) Authenticate(onError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := ExtractToken(r)
			if !ok {
				onError(w, apperrors.NewAppError(apperrors.ErrCodeUnauthorized, ErrTokenMissing.Error(), nil))
				return
			}

			claims, err := a.ValidateToken(tokenString)
			if err != nil {
				onError(w, apperrors.NewAppError(apperrors.ErrCodeUnauthorized, err.Error(), err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.User())))
		})
	}
}

// WithUser stores the session user in ctx
func WithUser(ctx context.Context, user domain.SessionUser) context.Context {
	ctx = sharedctx.WithUserUUID(ctx, user.UserUUID)
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the session user stored by Authenticate
func UserFromContext(ctx context.Context) (domain.SessionUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.SessionUser)
	return user, ok
}
