// Command authentication is a development token issuer. It signs access
// tokens for arbitrary user ids with the secret the company service uses.
package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gartstein/companyhub/internal/company/auth"
	"go.uber.org/zap"
)

type config struct {
	Port   int           `env:"AUTH_PORT" envDefault:"8081"`
	Secret string        `env:"COMPANYHUB_JWT_SECRET" envDefault:"jwt_secret"`
	TTL    time.Duration `env:"COMPANYHUB_JWT_TTL" envDefault:"24h"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func tokenHandler(tokens *auth.TokenManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
			return
		}

		token, err := tokens.GenerateToken(userID)
		if err != nil {
			logger.Error("Failed to generate token", zap.Int64("user_id", userID), zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tokenResponse{AccessToken: token, TokenType: "bearer"}); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse env", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /token", tokenHandler(auth.NewTokenManager(cfg.Secret, cfg.TTL), logger))

	addr := ":" + strconv.Itoa(cfg.Port)
	logger.Info("Authentication service running", zap.String("addr", addr))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
