package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "user_id"
	teamIDKey contextKey = "team_id"
)

// WithUserID returns a context carrying the acting user's identifier.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the acting user's identifier, or "" if absent.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// WithTeamID returns a context carrying the caller's shared team identifier.
// An empty team ID means the caller operates under an individual scope.
func WithTeamID(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, teamIDKey, teamID)
}

// TeamIDFromContext extracts the caller's team identifier, or "" if absent.
func TeamIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(teamIDKey).(string)
	return v
}
