package warden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SignupInput carries everything needed to register an account. Password is
// ignored for SourceGoogle signups.
type SignupInput struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Username string     `json:"username"`
	Source   UserSource `json:"userSource"`
}

func (in SignupInput) isEmpty() bool {
	return in.Email == "" && in.Password == "" && in.Username == ""
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful authentication artifact: the issued token plus
// the resolved user.
type LoginResult struct {
	Token TokenData
	User  *User
}

// Google sign-in modes. Signup only ensures the user row exists; login also
// issues a token.
const (
	GoogleModeLogin  = "login"
	GoogleModeSignup = "signup"
)

// AuthService is the business-logic core: signup, local login and Google
// sign-in. All operations are synchronous and single-attempt; errors from the
// taxonomy in errors.go propagate to the caller unchanged.
type AuthService struct {
	Users  UserStore
	Tokens *TokenIssuer

	// Claims decodes Google ID tokens. Defaults to UnverifiedDecoder.
	Claims ClaimDecoder
}

func NewAuthService(users UserStore, tokens *TokenIssuer) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Claims: UnverifiedDecoder{}}
}

func (s *AuthService) claims() ClaimDecoder {
	if s.Claims == nil {
		return UnverifiedDecoder{}
	}
	return s.Claims
}

// Signup registers a new account. Re-signup with an existing email is a
// conflict for local accounts but a no-op success for Google accounts, so a
// returning Google user never sees an error.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*User, error) {
	if input.isEmpty() {
		return nil, NewValidationError(ErrCodeEmptyInput, "userData is empty")
	}
	if input.Source == 0 {
		input.Source = SourceLocal
	}

	existing, err := s.Users.GetUserByEmail(ctx, input.Email)
	if err == nil {
		if input.Source == SourceGoogle {
			return existing, nil
		}
		return nil, NewConflictError(ErrCodeEmailExists, fmt.Sprintf("This email %s already exists", input.Email))
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed := ""
	if input.Source != SourceGoogle {
		hashed, err = HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
	}

	created, err := s.Users.CreateUser(ctx, &User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hashed,
		Source:       input.Source,
	})
	if errors.Is(err, ErrEmailTaken) {
		// Lost a concurrent signup race; the unique constraint caught it.
		if input.Source == SourceGoogle {
			return s.Users.GetUserByEmail(ctx, input.Email)
		}
		return nil, NewConflictError(ErrCodeEmailExists, fmt.Sprintf("This email %s already exists", input.Email))
	}
	if err != nil {
		return nil, err
	}

	slog.Info("user created", "id", created.ID, "source", created.Source)
	return created, nil
}

// Login authenticates credentials and issues a signed token. Google-sourced
// logins skip the password check entirely.
func (s *AuthService) Login(ctx context.Context, input LoginInput, source UserSource) (*LoginResult, error) {
	if input.Email == "" && input.Password == "" {
		return nil, NewValidationError(ErrCodeEmptyInput, "userData is empty")
	}

	user, err := s.Users.GetUserByEmail(ctx, input.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, NewConflictError(ErrCodeEmailNotFound, "This email is not matching")
	}
	if err != nil {
		return nil, err
	}

	matched := source == SourceGoogle || CheckPassword(input.Password, user.PasswordHash)
	if !matched {
		return nil, NewConflictError(ErrCodeBadPassword, "Password not matching")
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// GoogleSignIn decodes a Google ID token and either just ensures the account
// exists (signup mode) or also authenticates it (login mode).
func (s *AuthService) GoogleSignIn(ctx context.Context, rawToken, mode string) (*LoginResult, error) {
	claim, err := s.claims().Decode(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	return s.SignInWithClaim(ctx, claim, mode)
}

// SignInWithClaim runs the federated flow for an already-decoded claim.
// Signup runs in both modes so a login for a brand-new Google user still
// creates the row; only login mode issues a token.
func (s *AuthService) SignInWithClaim(ctx context.Context, claim *GoogleClaim, mode string) (*LoginResult, error) {
	user, err := s.Signup(ctx, SignupInput{
		Email:    claim.Email,
		Username: claim.Name,
		Source:   SourceGoogle,
	})
	if err != nil {
		return nil, err
	}

	if mode == GoogleModeLogin {
		return s.Login(ctx, LoginInput{Email: claim.Email}, SourceGoogle)
	}
	return &LoginResult{User: user}, nil
}
