package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/store"
	"github.com/lucelabs/luce-styling-api/utils"
)

// Package-level dependencies, wired once at startup.
var (
	Stores *store.Registry
	AI     *gemini.Client
)

// Init wires the shared registry and AI client into the handlers.
func Init(stores *store.Registry, ai *gemini.Client) {
	Stores = stores
	AI = ai
}

type contextKey string

const userIDKey contextKey = "user_id"

// AuthMiddleware validates the Bearer token and puts the uid into the
// request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.RespondError(w, nil, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.RespondError(w, nil, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		uid, err := utils.ParseUserID(tokenString)
		if err != nil {
			utils.RespondError(w, nil, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uid)
		next(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext returns the authenticated uid set by
// AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("user id not found in context")
	}
	return uid, nil
}

// userStore resolves the authenticated user's state store, writing the
// error response itself on failure.
func userStore(w http.ResponseWriter, r *http.Request, logger *strings.Builder) (*store.UserStore, bool) {
	uid, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, logger, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	s, err := Stores.Get(r.Context(), uid)
	if err != nil {
		utils.RespondError(w, logger, fmt.Sprintf("Failed to load user state: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}
