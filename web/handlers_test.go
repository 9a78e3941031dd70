package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden"
	fsstore "github.com/wardenhq/warden/stores/fs"
	"github.com/wardenhq/warden/web"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := fsstore.NewUserStore(t.TempDir())
	tokens := warden.NewTokenIssuer("test-secret-key", "warden-test")
	auth := warden.NewAuthService(store, tokens)

	session := scs.New()
	session.Lifetime = warden.TokenLifetime
	guard := &warden.Guard{Tokens: tokens, Users: store, Session: session}

	server, err := web.NewServer(auth, session, guard)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// newClient returns a cookie-keeping client that does not follow redirects,
// so tests can assert on Location headers.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestSignupEndpoint(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/signup", `{"email":"a@b.com","password":"pw","username":"A"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payload := decodeResponse(t, resp)
	assert.Equal(t, "signup", payload["message"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, "a@b.com", data["email"])
	assert.NotZero(t, data["id"])
	_, hasHash := data["password_hash"]
	assert.False(t, hasHash, "response must not leak the password hash")

	// Same email again is a conflict.
	resp = postJSON(t, client, ts.URL+"/signup", `{"email":"a@b.com","password":"pw","username":"A"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	payload = decodeResponse(t, resp)
	assert.Contains(t, payload["message"], "already exists")
}

func TestSignupEmptyBody(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/signup", ``)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/signup", `{"email":"a@b.com","password":"pw","username":"A"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/login", `{"email":"a@b.com","password":"wrong"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	payload := decodeResponse(t, resp)
	assert.Equal(t, "Password not matching", payload["message"])

	resp = postJSON(t, client, ts.URL+"/login", `{"email":"a@b.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload = decodeResponse(t, resp)
	assert.Equal(t, "login", payload["message"])

	var authCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == web.AuthCookieName {
			authCookie = cookie
		}
	}
	require.NotNil(t, authCookie, "login must set the auth token cookie")
	assert.Equal(t, 3600, authCookie.MaxAge)
	assert.True(t, authCookie.HttpOnly)
}

func TestDashboardFlow(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	// Anonymous request bounces to the login page.
	resp, err := client.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = postJSON(t, client, ts.URL+"/signup", `{"email":"a@b.com","password":"pw","username":"A"}`)
	resp.Body.Close()
	resp = postJSON(t, client, ts.URL+"/login", `{"email":"a@b.com","password":"pw"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Authenticated session renders the dashboard with the user snapshot.
	resp, err = client.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Welcome, A")
	assert.Contains(t, string(body), "a@b.com")

	// Anonymous-only pages now redirect to the dashboard.
	resp, err = client.Get(ts.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestLogout(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/signup", `{"email":"a@b.com","password":"pw","username":"A"}`)
	resp.Body.Close()
	resp = postJSON(t, client, ts.URL+"/login", `{"email":"a@b.com","password":"pw"}`)
	resp.Body.Close()

	resp, err := client.Get(ts.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	for _, cookie := range resp.Cookies() {
		if cookie.Name == web.AuthCookieName {
			assert.LessOrEqual(t, cookie.MaxAge, 0, "logout must clear the auth cookie")
		}
	}

	// The destroyed session no longer authenticates anything.
	resp, err = client.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLogoutRequiresAuth(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func googleIDToken(t *testing.T, email, name string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"email": email,
		"name":  name,
	})
	signed, err := token.SignedString([]byte("providers-own-key"))
	require.NoError(t, err)
	return signed
}

func TestGoogleVerifySignupMode(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/auth/google/verify?mode=signup&credential=" + googleIDToken(t, "g@b.com", "G User"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decodeResponse(t, resp)
	assert.Equal(t, "signup", payload["message"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, "g@b.com", data["email"])
	assert.Equal(t, float64(warden.SourceGoogle), data["userSource"])

	// Signup mode does not establish a session.
	resp, err = client.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestGoogleVerifyLoginMode(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/auth/google/verify?mode=login&credential=" + googleIDToken(t, "g@b.com", "G User"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decodeResponse(t, resp)
	assert.Equal(t, "login", payload["message"])

	// Login mode establishes the session.
	resp, err = client.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "G User")
}

func TestGoogleVerifyBadClaim(t *testing.T) {
	ts := setupServer(t)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/auth/google/verify?mode=login&credential=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerHeaderAuth(t *testing.T) {
	// API-style clients can skip the session entirely and send the token in
	// the Authorization header.
	store := fsstore.NewUserStore(t.TempDir())
	tokens := warden.NewTokenIssuer("test-secret-key", "warden-test")
	auth := warden.NewAuthService(store, tokens)

	session := scs.New()
	guard := &warden.Guard{Tokens: tokens, Users: store, Session: session}
	server, err := web.NewServer(auth, session, guard)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	user, err := auth.Signup(context.Background(), warden.SignupInput{Email: "a@b.com", Password: "pw", Username: "A", Source: warden.SourceLocal})
	require.NoError(t, err)
	data, err := tokens.Issue(user.ID)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/dashboard", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+data.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Welcome, A")
}
