// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/srm999/DataQEsuite/internal/auth"
)

// Scope is the authorization context of one request: who is acting and
// which team's data they may see.
type Scope struct {
	UserID  int64
	TeamID  int64
	IsAdmin bool
}

// ScopeFor builds the scope of a user entity.
func ScopeFor(u *UserEntity) Scope {
	s := Scope{UserID: u.ID, IsAdmin: u.IsAdmin}
	if u.TeamID != nil {
		s.TeamID = *u.TeamID
	}
	return s
}

// JWTAuth handles JWT authentication
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth creates a new JWT authenticator
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
	}
}

// JWTClaims carries the authorization scope alongside the registered claims.
// The user id travels in the standard 'sub' claim.
type JWTClaims struct {
	IsAdmin bool  `json:"adm"`
	TeamID  int64 `json:"team,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed token for a user.
func (j *JWTAuth) GenerateToken(user *UserEntity, expiration time.Duration) (string, error) {
	claims := &JWTClaims{
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "dataqe-suite",
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}
	if user.TeamID != nil {
		claims.TeamID = *user.TeamID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (j *JWTAuth) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, fmt.Errorf("missing sub (user ID) in token")
		}
		if _, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil {
			return nil, fmt.Errorf("sub is not a numeric user ID: %q", claims.Subject)
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ScopeFromRequest extracts the authorization scope from the bearer token.
func (j *JWTAuth) ScopeFromRequest(r *http.Request) (Scope, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Scope{}, fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return Scope{}, fmt.Errorf("bearer token required")
	}

	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return Scope{}, fmt.Errorf("invalid token: %w", err)
	}

	userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
	return Scope{UserID: userID, TeamID: claims.TeamID, IsAdmin: claims.IsAdmin}, nil
}

// Middleware returns an HTTP middleware for JWT authentication
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := j.ValidateToken(bearerToken[1])
		if err != nil {
			// Safely log token prefix (max 20 chars)
			tokenPrefix := bearerToken[1]
			if len(tokenPrefix) > 20 {
				tokenPrefix = tokenPrefix[:20]
			}
			slog.Error("JWT validation failed", "error", err, "token_prefix", tokenPrefix)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
		ctx := auth.SetAuthContext(r.Context(), userID, claims.TeamID, claims.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly wraps a handler and rejects non-admin scopes. Must run inside
// Middleware so the auth context is populated.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAdmin, ok := auth.GetIsAdmin(r.Context()); !ok || !isAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ScopeFromContext rebuilds the scope stored by Middleware.
func ScopeFromContext(r *http.Request) (Scope, bool) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		return Scope{}, false
	}
	teamID, _ := auth.GetTeamID(r.Context())
	isAdmin, _ := auth.GetIsAdmin(r.Context())
	return Scope{UserID: userID, TeamID: teamID, IsAdmin: isAdmin}, true
}
