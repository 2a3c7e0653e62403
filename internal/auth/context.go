// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	teamIDKey  contextKey = "team_id"
	isAdminKey contextKey = "is_admin"
)

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// SetTeamID sets the team ID in the context
func SetTeamID(ctx context.Context, teamID int64) context.Context {
	return context.WithValue(ctx, teamIDKey, teamID)
}

// GetTeamID retrieves the team ID from the context
func GetTeamID(ctx context.Context) (int64, bool) {
	teamID, ok := ctx.Value(teamIDKey).(int64)
	return teamID, ok
}

// SetIsAdmin sets the admin flag in the context
func SetIsAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, isAdminKey, isAdmin)
}

// GetIsAdmin retrieves the admin flag from the context
func GetIsAdmin(ctx context.Context) (bool, bool) {
	isAdmin, ok := ctx.Value(isAdminKey).(bool)
	return isAdmin, ok
}

// SetAuthContext sets user, team and admin flag in one call
func SetAuthContext(ctx context.Context, userID, teamID int64, isAdmin bool) context.Context {
	ctx = SetUserID(ctx, userID)
	ctx = SetTeamID(ctx, teamID)
	ctx = SetIsAdmin(ctx, isAdmin)
	return ctx
}
