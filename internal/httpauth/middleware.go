// Package httpauth extracts a verified internal/actor.Context from an
// incoming request's bearer JWT: Bearer-header parsing, an HMAC-only signing
// method check, and one claim set carrying user id, role, and department.
// The user directory and credential flow that mint these tokens live
// elsewhere; this package only verifies.
package httpauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"grievance/internal/actor"
)

type ctxKey int

const actorCtxKey ctxKey = 0

// Claims is the JWT payload shape every verified token carries: the actor's
// user id, role, and (for STAFF/DEPT_HEAD) home department.
type Claims struct {
	UserID       int64      `json:"user_id"`
	Role         actor.Role `json:"role"`
	DepartmentID int64      `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given actor fields, expiring expiresIn seconds
// from now. Used by the out-of-scope authentication layer (tests and local
// tooling) to mint tokens this middleware can verify.
func Issue(secret []byte, userID int64, role actor.Role, departmentID int64, expiresIn int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       userID,
		Role:         role,
		DepartmentID: departmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiresIn) * time.Second)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Middleware verifies the Authorization: Bearer <token> header and stores
// the resulting actor.Context on the request context for downstream
// handlers to read via FromContext.
type Middleware struct {
	secret []byte
}

func New(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

var errMissingHeader = errors.New("authorization header required")

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := m.parse(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

func (m *Middleware) parse(r *http.Request) (actor.Context, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return actor.Context{}, errMissingHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return actor.Context{}, errors.New("invalid authorization format, expected: Bearer <token>")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return actor.Context{}, errors.New("invalid or expired token")
	}

	hasDept := claims.Role == actor.RoleStaff || claims.Role == actor.RoleDeptHead
	return actor.NewUserContext(claims.UserID, claims.Role, claims.DepartmentID, hasDept), nil
}

// WithActor stores a (e.g. system-originated) actor context directly,
// bypassing JWT parsing. Used by internal jobs that call into the same
// handlers as tests.
func WithActor(ctx context.Context, a actor.Context) context.Context {
	return context.WithValue(ctx, actorCtxKey, a)
}

// FromContext retrieves the actor.Context a Middleware.Require call placed
// on the request context.
func FromContext(ctx context.Context) (actor.Context, bool) {
	a, ok := ctx.Value(actorCtxKey).(actor.Context)
	return a, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"` + message + `"}`))
}
