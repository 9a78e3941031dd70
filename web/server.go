// Package web is the HTTP surface: a gorilla/mux router binding verbs and
// paths to the auth service, guarded per route, plus the rendered pages.
// It is the single place where AuthErrors become HTTP status codes.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	"github.com/wardenhq/warden"
)

//go:embed templates/*.html
var templateFS embed.FS

// AuthCookieName is the cookie that carries the raw signed token alongside
// the session cookie.
const AuthCookieName = "Authorization"

// Server holds everything the handlers need.
type Server struct {
	Auth    *warden.AuthService
	Session *scs.SessionManager
	Guard   *warden.Guard

	// GoogleClientID is rendered into the login/signup pages for the
	// Google sign-in button.
	GoogleClientID string

	// GoogleFlow, when set, mounts the server-side OAuth2 redirect flow at
	// /auth/google/start and /auth/google/callback.
	GoogleFlow GoogleFlowHandlers

	templates *template.Template
}

// GoogleFlowHandlers is implemented by the oauth2 package.
type GoogleFlowHandlers interface {
	Start(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
}

func NewServer(auth *warden.AuthService, session *scs.SessionManager, guard *warden.Guard) (*Server, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		Auth:      auth,
		Session:   session,
		Guard:     guard,
		templates: templates,
	}, nil
}

// Handler builds the full route table. The session middleware wraps
// everything so guards and handlers can read and write session state.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	r.Handle("/", s.Guard.RequireAnonymous(http.HandlerFunc(s.loginPage))).Methods(http.MethodGet)
	r.Handle("/login", s.Guard.RequireAnonymous(http.HandlerFunc(s.loginPage))).Methods(http.MethodGet)
	r.Handle("/signup", s.Guard.RequireAnonymous(http.HandlerFunc(s.signupPage))).Methods(http.MethodGet)
	r.Handle("/logout", s.Guard.RequireAuthenticated(http.HandlerFunc(s.handleLogout))).Methods(http.MethodGet)
	r.Handle("/dashboard", s.Guard.RequireAuthenticated(http.HandlerFunc(s.dashboardPage))).Methods(http.MethodGet)
	r.Handle("/auth/google/verify", s.Guard.RequireAnonymous(http.HandlerFunc(s.handleGoogleVerify))).Methods(http.MethodGet)

	if s.GoogleFlow != nil {
		r.Handle("/auth/google/start", s.Guard.RequireAnonymous(http.HandlerFunc(s.GoogleFlow.Start))).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/callback", s.GoogleFlow.Callback).Methods(http.MethodGet)
	}

	return s.Session.LoadAndSave(r)
}
