// README: HS256 token verifier for local development without Firebase.
package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier accepts HS256 tokens signed with secret. The uid is the
// token's "sub" claim.
func NewJWTVerifier(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) VerifyIDToken(_ context.Context, idToken string) (*AuthToken, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingSubject
	}
	return &AuthToken{UID: sub, Claims: claims}, nil
}

// SignDevToken issues an HS256 token for uid, for local testing.
func SignDevToken(secret, uid string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uid}).SignedString([]byte(secret))
}
