package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type prevents other packages from reading or
// shadowing the identity value.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth enforces authentication on protected routes.
//
// It reads the opaque bearer token from the Authorization header, resolves
// it through the session store, and loads the user it belongs to. A token
// is only valid while its user still exists: if the user record is gone
// the session is revoked on the spot, matching the store invariant.
// Missing or invalid tokens end the request with 401.
func RequireAuth(sessions *SessionStore, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := resolveIdentity(r, sessions, users)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the caller's identity when a valid token is present
// but never blocks the request. Listing endpoints use it so anonymous
// readers work while logged-in callers get personalized responses.
func OptionalAuth(sessions *SessionStore, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, ok := resolveIdentity(r, sessions, users); ok {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok && identity.ID != ""
}

// BearerToken extracts the session token from a request. The Authorization
// header wins, with or without the "Bearer " prefix (older clients send
// the raw token). The access_token query parameter is a fallback for the
// notification stream, since EventSource cannot set headers.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func resolveIdentity(r *http.Request, sessions *SessionStore, users repository.UserRepository) (model.Identity, bool) {
	token := BearerToken(r)
	if token == "" {
		return model.Identity{}, false
	}

	userID, ok := sessions.Resolve(token)
	if !ok {
		return model.Identity{}, false
	}

	user, err := users.GetByID(r.Context(), userID)
	if err != nil {
		// User record gone: the token points at nothing, drop it.
		sessions.Revoke(token)
		return model.Identity{}, false
	}

	return model.Identity{
		ID:                 user.ID,
		RegistrationNumber: user.RegistrationNumber,
		Name:               user.Name,
		Email:              user.Email,
		Phone:              user.Phone,
	}, true
}
