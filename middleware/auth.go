package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/google/uuid"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	storeKey   contextKey = "localstore"
	currentKey contextKey = "current_user"
)

// AuthMiddleware attaches the visitor's session and its LocalStore to the
// request context when the session cookie is valid.
func AuthMiddleware(sessionRepo session.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionRepo.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrInvalidSession) && !errors.Is(err, session.ErrExpiredSession) {
					slog.Error("failed to load session", "error", err)
				} else {
					slog.Info("invalid/expired session")
				}
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = context.WithValue(ctx, storeKey, sessionRepo.Items(sess.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEmployee lets through only visitors whose LocalStore holds an
// Employee user, redirecting everyone else to redirectTo.
func RequireEmployee(redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, ok := GetStore(r.Context())
			if !ok {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			u, err := localstore.LoadUser(r.Context(), st)
			if err != nil {
				if !errors.Is(err, localstore.ErrNoUser) {
					slog.Warn("unusable stored user", "error", err)
				}
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}
			if u.Type != user.TypeEmployee {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), currentKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie hands the session token to the browser.
func SetSessionCookie(w http.ResponseWriter, sess *session.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   session.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*session.Session)
	return sess, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	sess, ok := GetSession(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return sess.UserID, true
}

func GetStore(ctx context.Context) (localstore.Store, bool) {
	st, ok := ctx.Value(storeKey).(localstore.Store)
	return st, ok
}

// GetCurrentUser returns the employee admitted by RequireEmployee.
func GetCurrentUser(ctx context.Context) (user.Current, bool) {
	u, ok := ctx.Value(currentKey).(user.Current)
	return u, ok
}

// IsAuthenticated checks if user is authenticated
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetUserID(ctx)
	return ok
}
