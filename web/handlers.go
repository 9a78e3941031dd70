package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wardenhq/warden"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var input warden.SignupInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, warden.NewValidationError(warden.ErrCodeEmptyInput, "userData is empty"))
		return
	}
	input.Source = warden.SourceLocal

	user, err := s.Auth.Signup(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user.Public(), "signup")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input warden.LoginInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, warden.NewValidationError(warden.ErrCodeEmptyInput, "userData is empty"))
		return
	}

	result, err := s.Auth.Login(r.Context(), input, warden.SourceLocal)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.establishSession(w, r, result)
	s.writeJSON(w, http.StatusOK, result.User.Public(), "login")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Destroy(r.Context()); err != nil {
		slog.Warn("error destroying session", "err", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleGoogleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawToken := query.Get("credential")
	if rawToken == "" {
		rawToken = query.Get("token")
	}
	mode := query.Get("mode")
	if mode == "" {
		mode = warden.GoogleModeSignup
	}

	result, err := s.Auth.GoogleSignIn(r.Context(), rawToken, mode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if mode == warden.GoogleModeLogin {
		s.establishSession(w, r, result)
		s.writeJSON(w, http.StatusOK, result.User.Public(), "login")
		return
	}
	s.writeJSON(w, http.StatusOK, result.User.Public(), "signup")
}

// HandleGoogleClaim finishes the server-side OAuth2 flow: the callback hands
// over a decoded claim, we sign the user in and land them on the dashboard.
func (s *Server) HandleGoogleClaim(claim *warden.GoogleClaim, w http.ResponseWriter, r *http.Request) {
	result, err := s.Auth.SignInWithClaim(r.Context(), claim, warden.GoogleModeLogin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.establishSession(w, r, result)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "login.html", map[string]any{"ClientID": s.GoogleClientID})
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "signup.html", map[string]any{"ClientID": s.GoogleClientID})
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	user, ok := warden.UserFromContext(r.Context())
	if !ok {
		// RequireAuthenticated always sets the user; losing it is a bug.
		http.Error(w, "no user in context", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "dashboard.html", user.Public())
}

// establishSession binds the client to the authenticated user: the token and
// user snapshot go into the session record, and the raw token also travels in
// an HttpOnly cookie whose lifetime matches the token's.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, result *warden.LoginResult) {
	ctx := r.Context()
	if err := s.Session.RenewToken(ctx); err != nil {
		slog.Warn("error renewing session token", "err", err)
	}
	s.Session.Put(ctx, "token", result.Token.Token)
	s.Session.Put(ctx, "user", result.User.Public())

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    result.Token.Token,
		Path:     "/",
		MaxAge:   result.Token.ExpiresIn,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("error rendering template", "template", name, "err", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data, "message": message})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := warden.StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": err.Error()})
}

// decodeBody accepts JSON or a urlencoded form, the way clients actually post.
func decodeBody(r *http.Request, dst any) error {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return err
		}
		values := map[string]any{}
		for key := range r.PostForm {
			values[key] = r.PostForm.Get(key)
		}
		data, err := json.Marshal(values)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, dst)
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
