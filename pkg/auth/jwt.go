package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/getzep/cioexport/config"
)

const JwtAlg = "HS256"

var ErrAuthSecretNotSet = errors.New(
	"auth secret not set. Ensure CIOEXPORT_AUTH_SECRET is set in your environment",
)

// GenerateJWT generates a JWT token for the ingress API using the given config.
func GenerateJWT(cfg *config.Config) (string, error) {
	tokenAuth, err := newTokenAuth(cfg)
	if err != nil {
		return "", err
	}

	_, tokenString, err := tokenAuth.Encode(nil)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// JWTVerifier returns middleware that finds and verifies a Bearer token.
// Pair it with jwtauth.Authenticator to reject requests without a valid one.
func JWTVerifier(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	tokenAuth, err := newTokenAuth(cfg)
	if err != nil {
		return nil, err
	}
	return jwtauth.Verifier(tokenAuth), nil
}

func newTokenAuth(cfg *config.Config) (*jwtauth.JWTAuth, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return nil, ErrAuthSecretNotSet
	}
	return jwtauth.New(JwtAlg, secret, nil), nil
}
