// Package jwttoken validates bearer tokens presented to the beacon. Only
// HS256 is accepted; the subject claim identifies the querying user for
// budget accounting.
package jwttoken

import (
	"github.com/golang-jwt/jwt/v5"

	pkgerrors "beacon/pkg/errors"
)

// Claims are the token claims the beacon cares about. The subject doubles
// as the budget-ledger user key, so it must survive token refresh.
type Claims struct {
	jwt.RegisteredClaims
}

type Service struct {
	signingKey []byte
}

func New(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a compact JWT. Any failure comes back
// as CodeUnauthorized; callers decide whether that means 401 or anonymous.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ExtractUserID returns the verified subject of the token.
func (s *Service) ExtractUserID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no subject")
	}
	return claims.Subject, nil
}
