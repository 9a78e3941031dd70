// Package grpcauth authenticates RPC clients with the same signed tokens the
// web login issues. Interceptors read a bearer token from the request
// metadata, verify it and place the user id in the handler context.
package grpcauth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wardenhq/warden"
)

// MetadataKeyAuthorization is the metadata key carrying the bearer token.
const MetadataKeyAuthorization = "authorization"

type ctxUserIDKey struct{}

// UserIDFromContext returns the authenticated user id, or 0 when the request
// is anonymous.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxUserIDKey{}).(int64)
	return id
}

// IsAuthenticated reports whether the context carries an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != 0
}

// Interceptor verifies warden tokens on incoming RPCs.
type Interceptor struct {
	Tokens *warden.TokenIssuer

	// Users, when set, requires the token's user to still exist.
	Users warden.UserStore

	// RequireAuth when true rejects unauthenticated requests. When false,
	// requests proceed and UserIDFromContext returns 0.
	RequireAuth bool

	// PublicMethods are full method names ("/package.Service/Method") that
	// skip the auth requirement.
	PublicMethods map[string]bool
}

// NewInterceptor returns an interceptor that requires auth on every method
// except those listed.
func NewInterceptor(tokens *warden.TokenIssuer, users warden.UserStore, publicMethods ...string) *Interceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, method := range publicMethods {
		public[method] = true
	}
	return &Interceptor{
		Tokens:        tokens,
		Users:         users,
		RequireAuth:   true,
		PublicMethods: public,
	}
}

// Unary returns the unary server interceptor.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream returns the stream server interceptor.
func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	userID := i.verifyRequest(ctx)
	if userID == 0 && i.RequireAuth && !i.PublicMethods[fullMethod] {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if userID != 0 {
		ctx = context.WithValue(ctx, ctxUserIDKey{}, userID)
	}
	return ctx, nil
}

func (i *Interceptor) verifyRequest(ctx context.Context) int64 {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0
	}
	for _, value := range md.Get(MetadataKeyAuthorization) {
		token := strings.TrimPrefix(value, "Bearer ")
		userID, err := i.Tokens.Verify(token)
		if err != nil {
			continue
		}
		if i.Users != nil {
			if _, err := i.Users.GetUserByID(ctx, userID); err != nil {
				continue
			}
		}
		return userID
	}
	return 0
}

// TokenToOutgoingContext attaches a bearer token to an outgoing RPC.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MetadataKeyAuthorization, "Bearer "+token)
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
