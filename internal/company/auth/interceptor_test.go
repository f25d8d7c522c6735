package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

func TestAuthInterceptor(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
		userID        = int64(42)
		protected     = "/companyhub.v1.Admin/Reindex"
	)

	tokenFor := func(secret string, ttl time.Duration) string {
		token, err := NewTokenManager(secret, ttl).GenerateToken(userID)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		return token
	}
	expired := func() string {
		m := NewTokenManager(validSecret, time.Hour)
		m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := m.GenerateToken(userID)
		return token
	}

	tests := []struct {
		name        string
		fullMethod  string
		token       string
		wantError   bool
		expectedErr codes.Code
	}{
		{
			name:        "protected method valid token",
			fullMethod:  protected,
			token:       tokenFor(validSecret, time.Hour),
			expectedErr: codes.OK,
		},
		{
			name:        "protected method invalid token",
			fullMethod:  protected,
			token:       tokenFor(invalidSecret, time.Hour),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method expired token",
			fullMethod:  protected,
			token:       expired(),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method missing metadata",
			fullMethod:  protected,
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "public method no token",
			fullMethod:  healthCheckMethod,
			expectedErr: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := NewAuthInterceptor(NewTokenManager(validSecret, time.Hour), healthCheckMethod)
			unaryInterceptor := interceptor.Unary()

			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", "Bearer "+tt.token))
			}

			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if tt.fullMethod == protected {
					id, ok := UserIDFromContext(ctx)
					if !ok || id != userID {
						return nil, status.Error(codes.Unauthenticated, "user not in context")
					}
				}
				return "response", nil
			}

			info := &grpc.UnaryServerInfo{FullMethod: tt.fullMethod}
			resp, err := unaryInterceptor(ctx, nil, info, handler)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.expectedErr {
					t.Errorf("expected error code %v, got %v", tt.expectedErr, status.Code(err))
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if resp != "response" {
				t.Error("handler response mismatch")
			}
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{name: "valid authorization header", header: "Bearer valid-token", wantToken: "valid-token"},
		{name: "lower case scheme", header: "bearer valid-token", wantToken: "valid-token"},
		{name: "missing authorization header", header: "", wantErr: true},
		{name: "malformed authorization header", header: "InvalidPrefix valid-token", wantErr: true},
		{name: "empty bearer token", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromHeader(tt.header)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	const validSecret = "test-secret"
	manager := NewTokenManager(validSecret, time.Hour)
	validTokenString, err := manager.GenerateToken(7)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	foreignIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(validSecret))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-number",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(validSecret))

	tests := []struct {
		name        string
		tokenString string
		secret      string
		wantValid   bool
	}{
		{name: "valid token", tokenString: validTokenString, secret: validSecret, wantValid: true},
		{name: "invalid signature", tokenString: validTokenString, secret: "wrong-secret"},
		{name: "foreign issuer", tokenString: foreignIssuer, secret: validSecret},
		{name: "non numeric subject", tokenString: badSubject, secret: validSecret},
		{name: "garbage", tokenString: "not.a.token", secret: validSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewTokenManager(tt.secret, time.Hour).ValidateToken(tt.tokenString)
			if tt.wantValid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id != 7 {
					t.Errorf("expected user 7, got %d", id)
				}
				return
			}
			if err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}
