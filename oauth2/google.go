// Package oauth2 implements the server-side Google sign-in flow: a state
// cookie plus redirect to Google, then a callback that exchanges the code,
// fetches the user's profile and hands a claim to the app.
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wardenhq/warden"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

// HandleClaimFunc receives the decoded claim after a successful callback.
type HandleClaimFunc func(claim *warden.GoogleClaim, w http.ResponseWriter, r *http.Request)

// GoogleFlow drives the OAuth2 authorization-code flow against Google.
type GoogleFlow struct {
	HandleClaim HandleClaimFunc

	config oauth2.Config
}

func NewGoogleFlow(clientID, clientSecret, callbackURL string, handleClaim HandleClaimFunc) *GoogleFlow {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}
	return &GoogleFlow{
		HandleClaim: handleClaim,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// Start sets the anti-forgery state cookie and redirects to Google.
func (g *GoogleFlow) Start(w http.ResponseWriter, r *http.Request) {
	state := generateStateCookie(w)
	http.Redirect(w, r, g.config.AuthCodeURL(state), http.StatusFound)
}

// Callback verifies the state, exchanges the code and resolves the claim.
func (g *GoogleFlow) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, _ := r.Cookie("oauthstate")
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		http.SetCookie(w, &http.Cookie{Name: "oauthstate", MaxAge: -1})
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	token, err := g.config.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.Warn("oauth code exchange failed", "err", err)
		http.Error(w, "code exchange failed", http.StatusUnauthorized)
		return
	}

	claim, err := fetchClaim(r.Context(), token)
	if err != nil {
		slog.Warn("error fetching google profile", "err", err)
		http.Error(w, "could not load google profile", http.StatusUnauthorized)
		return
	}

	g.HandleClaim(claim, w, r)
}

func fetchClaim(ctx context.Context, token *oauth2.Token) (*warden.GoogleClaim, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL+token.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %w", err)
	}

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}
	if info.Name == "" {
		info.Name = info.Email
	}
	return &warden.GoogleClaim{Email: info.Email, Name: info.Name}, nil
}

func generateStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("error generating oauth state", "err", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:    "oauthstate",
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(10 * time.Minute),
	})
	return state
}
