package warden

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

func init() {
	// Session values are gob-encoded by scs.
	gob.Register(PublicUser{})
}

type ctxUserKey struct{}

// UserFromContext returns the user a guard attached to the request.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(ctxUserKey{}).(*User)
	return user, ok
}

// resolution is the outcome of running the shared token-resolution algorithm.
type resolution int

const (
	resolvedAnonymous     resolution = iota // no token anywhere
	resolvedInvalid                         // token verified but the user is gone
	resolvedAuthenticated                   // token verified, user loaded
)

// Guard decides whether a request is treated as authenticated or anonymous.
// RequireAuthenticated and RequireAnonymous share one resolution algorithm
// and enforce opposite preconditions; both are stateless across requests.
type Guard struct {
	Tokens  *TokenIssuer
	Users   UserStore
	Session *scs.SessionManager

	// Redirect targets for the soft-failure paths.
	LoginURL     string
	DashboardURL string

	// Where tokens are looked for, in order: session, bearer header, cookie.
	SessionTokenKey string
	SessionUserKey  string
	AuthHeaderName  string
	AuthCookieName  string
}

func (g *Guard) EnsureReasonableDefaults() {
	if g.LoginURL == "" {
		g.LoginURL = "/login"
	}
	if g.DashboardURL == "" {
		g.DashboardURL = "/dashboard"
	}
	if g.SessionTokenKey == "" {
		g.SessionTokenKey = "token"
	}
	if g.SessionUserKey == "" {
		g.SessionUserKey = "user"
	}
	if g.AuthHeaderName == "" {
		g.AuthHeaderName = "Authorization"
	}
	if g.AuthCookieName == "" {
		g.AuthCookieName = "Authorization"
	}
}

// readToken finds the request's token: the session's stored token wins, then
// a bearer header, then the auth cookie.
func (g *Guard) readToken(r *http.Request) string {
	if g.Session != nil {
		if token := g.Session.GetString(r.Context(), g.SessionTokenKey); token != "" {
			return token
		}
	}
	if header := r.Header.Get(g.AuthHeaderName); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	for _, cookie := range r.Cookies() {
		if cookie.Name == g.AuthCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// resolve runs the shared algorithm. A non-nil error always means the token
// failed verification and is already an unauthorized AuthError.
func (g *Guard) resolve(r *http.Request) (resolution, *User, error) {
	token := g.readToken(r)
	if token == "" {
		return resolvedAnonymous, nil, nil
	}
	userID, err := g.Tokens.Verify(token)
	if err != nil {
		return resolvedInvalid, nil, err
	}
	user, err := g.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		return resolvedInvalid, nil, nil
	}
	return resolvedAuthenticated, user, nil
}

// RequireAuthenticated admits only requests that resolve to a user. Anonymous
// requests are redirected to the login page; anything with a bad token gets a
// hard 401.
func (g *Guard) RequireAuthenticated(next http.Handler) http.Handler {
	g.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, user, err := g.resolve(r)
		if err != nil {
			g.unauthorized(w, err)
			return
		}
		switch state {
		case resolvedAuthenticated:
			ctx := context.WithValue(r.Context(), ctxUserKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		case resolvedAnonymous:
			http.Redirect(w, r, g.LoginURL, http.StatusFound)
		default:
			g.unauthorized(w, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token"))
		}
	})
}

// RequireAnonymous admits only requests with no authentication state. A
// request that resolves to a user gets its session refreshed with the user
// snapshot and is sent to the dashboard instead.
func (g *Guard) RequireAnonymous(next http.Handler) http.Handler {
	g.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, user, err := g.resolve(r)
		if err != nil {
			g.unauthorized(w, err)
			return
		}
		switch state {
		case resolvedAuthenticated:
			if g.Session != nil {
				g.Session.Put(r.Context(), g.SessionUserKey, user.Public())
			}
			http.Redirect(w, r, g.DashboardURL, http.StatusFound)
		case resolvedAnonymous:
			next.ServeHTTP(w, r)
		default:
			g.unauthorized(w, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token"))
		}
	})
}

func (g *Guard) unauthorized(w http.ResponseWriter, err error) {
	slog.Warn("rejecting request", "err", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"message": err.Error()})
}
