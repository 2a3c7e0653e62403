// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testUser() *UserEntity {
	teamID := int64(7)
	return &UserEntity{
		ID:       42,
		Username: "tester",
		Email:    "tester@example.com",
		IsAdmin:  false,
		TeamID:   &teamID,
	}
}

func TestJWTAuth_GenerateToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	user := testUser()
	duration := time.Hour

	token, err := jwtAuth.GenerateToken(user, duration)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("Generated token should not be empty")
	}

	// Verify the token can be parsed
	claims, err := jwtAuth.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate generated token: %v", err)
	}

	if claims.Subject != "42" {
		t.Errorf("Expected sub 42, got %s", claims.Subject)
	}

	if claims.TeamID != 7 {
		t.Errorf("Expected team 7, got %d", claims.TeamID)
	}

	if claims.IsAdmin {
		t.Error("Expected non-admin claims")
	}

	// Verify token expiration
	if claims.ExpiresAt == nil {
		t.Error("Token should have expiration time")
	}

	expectedExpiry := time.Now().Add(duration)
	actualExpiry := claims.ExpiresAt.Time
	timeDiff := actualExpiry.Sub(expectedExpiry).Abs()

	if timeDiff > time.Second {
		t.Errorf("Token expiry time differs by more than 1 second: expected ~%v, got %v", expectedExpiry, actualExpiry)
	}
}

func TestJWTAuth_GenerateToken_AdminWithoutTeam(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	user := &UserEntity{ID: 1, Username: "admin", IsAdmin: true}

	token, err := jwtAuth.GenerateToken(user, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := jwtAuth.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("Expected admin claims")
	}
	if claims.TeamID != 0 {
		t.Errorf("Expected no team, got %d", claims.TeamID)
	}
}

func TestJWTAuth_ValidateToken_WrongSecret(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	otherAuth := NewJWTAuth("other-secret")

	token, err := jwtAuth.GenerateToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := otherAuth.ValidateToken(token); err == nil {
		t.Error("Expected validation to fail with wrong secret")
	}
}

func TestJWTAuth_ValidateToken_Expired(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	token, err := jwtAuth.GenerateToken(testUser(), -time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := jwtAuth.ValidateToken(token); err == nil {
		t.Error("Expected validation to fail for expired token")
	}
}

func TestJWTAuth_ValidateToken_NonNumericSubject(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := jwtAuth.ValidateToken(token); err == nil {
		t.Error("Expected validation to fail for non-numeric sub")
	}
}

func TestJWTAuth_ScopeFromRequest(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	token, err := jwtAuth.GenerateToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	scope, err := jwtAuth.ScopeFromRequest(req)
	if err != nil {
		t.Fatalf("ScopeFromRequest failed: %v", err)
	}
	if scope.UserID != 42 || scope.TeamID != 7 || scope.IsAdmin {
		t.Errorf("Unexpected scope: %+v", scope)
	}

	// Missing and malformed headers
	req = httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	if _, err := jwtAuth.ScopeFromRequest(req); err == nil {
		t.Error("Expected error without Authorization header")
	}
	req.Header.Set("Authorization", token)
	if _, err := jwtAuth.ScopeFromRequest(req); err == nil {
		t.Error("Expected error without Bearer prefix")
	}
}

func TestJWTAuth_Middleware(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	token, err := jwtAuth.GenerateToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	var gotScope Scope
	handler := jwtAuth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := ScopeFromContext(r)
		if !ok {
			t.Error("Expected scope in context")
		}
		gotScope = scope
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if gotScope.UserID != 42 || gotScope.TeamID != 7 {
		t.Errorf("Unexpected scope from context: %+v", gotScope)
	}

	// Invalid token gets rejected before the handler runs
	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for invalid token, got %d", rec.Code)
	}
}

func TestAdminOnly(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	handler := jwtAuth.Middleware(AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	// Regular user gets 403
	token, err := jwtAuth.GenerateToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", rec.Code)
	}

	// Admin passes through
	admin := &UserEntity{ID: 1, Username: "admin", IsAdmin: true}
	token, err = jwtAuth.GenerateToken(admin, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin, got %d", rec.Code)
	}
}
