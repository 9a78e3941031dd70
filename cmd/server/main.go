// Command server runs the warden HTTP server.
//
// Configuration is taken from the environment:
//
//	PORT                        listen port (default 3030)
//	WARDEN_JWT_SECRET_KEY       token signing secret (required outside dev)
//	DATABASE_URL                postgres DSN; when empty, a JSON-file store
//	                            under WARDEN_DATA_DIR (default ./data) is used
//	GOOGLE_CLIENT_ID            rendered into the sign-in pages and used as
//	                            the ID-token audience
//	GOOGLE_CLIENT_SECRET        enables the server-side OAuth2 flow
//	OAUTH2_GOOGLE_CALLBACK_URL  callback URL for that flow
//	WARDEN_VERIFY_GOOGLE_TOKENS set to verify Google ID-token signatures
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wardenhq/warden"
	wardenoauth "github.com/wardenhq/warden/oauth2"
	fsstore "github.com/wardenhq/warden/stores/fs"
	gormstore "github.com/wardenhq/warden/stores/gorm"
	"github.com/wardenhq/warden/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	secretKey := os.Getenv("WARDEN_JWT_SECRET_KEY")
	if secretKey == "" {
		slog.Warn("WARDEN_JWT_SECRET_KEY not set, using development key")
		secretKey = "MyDevJWTSecretKey123456"
	}

	users, err := openUserStore()
	if err != nil {
		return err
	}

	tokens := warden.NewTokenIssuer(secretKey, "warden")
	auth := warden.NewAuthService(users, tokens)

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if os.Getenv("WARDEN_VERIFY_GOOGLE_TOKENS") != "" {
		auth.Claims = &warden.VerifiedDecoder{Audience: clientID}
	}

	session := scs.New()
	session.Lifetime = warden.TokenLifetime
	session.Cookie.HttpOnly = true

	guard := &warden.Guard{Tokens: tokens, Users: users, Session: session}

	server, err := web.NewServer(auth, session, guard)
	if err != nil {
		return err
	}
	server.GoogleClientID = clientID
	if os.Getenv("GOOGLE_CLIENT_SECRET") != "" {
		server.GoogleFlow = wardenoauth.NewGoogleFlow(
			clientID, os.Getenv("GOOGLE_CLIENT_SECRET"), os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"),
			server.HandleGoogleClaim,
		)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3030"
	}
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}

func openUserStore() (warden.UserStore, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dataDir := os.Getenv("WARDEN_DATA_DIR")
		if dataDir == "" {
			dataDir = "data"
		}
		slog.Info("using file store", "dir", dataDir)
		return fsstore.NewUserStore(dataDir), nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return nil, err
	}
	slog.Info("using postgres store")
	return gormstore.NewUserStore(db), nil
}
