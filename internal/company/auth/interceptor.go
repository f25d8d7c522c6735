// Package auth issues and validates bearer tokens, hashes passwords and
// carries the authenticated user id through HTTP and gRPC contexts.
package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Interceptor authenticates gRPC calls. Methods in the public set are served
// without a token.
type Interceptor struct {
	tokens        *TokenManager
	publicMethods map[string]bool
}

func NewAuthInterceptor(tokens *TokenManager, publicMethods ...string) *Interceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}
	return &Interceptor{tokens: tokens, publicMethods: public}
}

// Unary returns a gRPC unary interceptor for token validation.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata missing")
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization header missing")
		}

		tokenString, err := extractTokenFromHeader(values[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		userID, err := i.tokens.ValidateToken(tokenString)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithUserID(ctx, userID), req)
	}
}
