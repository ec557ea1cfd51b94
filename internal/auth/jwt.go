// Package auth issues and verifies the bearer tokens that guard the video
// API, and resolves Google sign-in tokens to local accounts.
package auth

import (
	"time"

	"vodworks/internal/pkg/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Tokens are HS256-signed; anything else is rejected at parse time.
var signatureAlgorithms = []jose.SignatureAlgorithm{jose.HS256}

// GenerateToken signs a token whose subject is the user id.
func GenerateToken(secret []byte, userID string) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, nil)
	if err != nil {
		return "", errors.Wrap(err, "auth.GenerateToken", "create signer")
	}

	now := time.Now()
	claims := jwt.Claims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(TokenTTL)),
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", errors.Wrap(err, "auth.GenerateToken", "sign token")
	}
	return token, nil
}

// VerifyToken checks signature and expiry and returns the user id carried
// in the subject claim.
func VerifyToken(secret []byte, token string) (string, error) {
	tok, err := jwt.ParseSigned(token, signatureAlgorithms)
	if err != nil {
		return "", errors.New(errors.CodeUnauthorized, "invalid token")
	}

	var claims jwt.Claims
	if err := tok.Claims(secret, &claims); err != nil {
		return "", errors.New(errors.CodeUnauthorized, "invalid token")
	}

	if err := claims.Validate(jwt.Expected{Time: time.Now()}); err != nil {
		return "", errors.New(errors.CodeUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New(errors.CodeUnauthorized, "invalid token")
	}
	return claims.Subject, nil
}
