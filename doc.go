// Package warden implements credential-based and Google-federated
// authentication with server-side sessions.
//
// The core is split into small pieces that compose at the edges of the app:
//
// AuthService: signup, login and Google sign-in. Signup registers local users
// with a bcrypt password hash and Google users with no password at all;
// re-signup through Google is an idempotent no-op. Login verifies the
// password (or skips the check for Google-sourced accounts) and issues a
// signed token.
//
// TokenIssuer: HS256-signed tokens with the user id as the only claim and a
// fixed one-hour validity. Verification treats every failure uniformly so
// callers can't tell tampering from expiry.
//
// Guard: two middleware roles built on one token-resolution algorithm
// (session token, then bearer header, then cookie). RequireAuthenticated
// attaches the user to the request context or sends the client to the login
// page; RequireAnonymous sends already-authenticated clients to the
// dashboard.
//
// UserStore: the persistence contract. stores/gorm provides the
// Postgres-backed implementation with a unique email index; stores/fs is a
// JSON-file store for development and tests.
//
// The HTTP surface lives in the web package, the server-side Google OAuth2
// flow in oauth2, and a token-verifying gRPC interceptor in grpcauth.
package warden
