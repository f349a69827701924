package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/element-app/backend/internal/core/domain"
)

// TokenService issues and verifies HS256-signed identity tokens. The signing
// secret is read once from configuration and injected here; nothing in this
// type consults ambient state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue builds claims for the given identity with exp = now + TTL and signs
// them with the process secret.
func (s *TokenService) Issue(userID, roleID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role_id": roleID,
		"exp":     time.Now().Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify validates the signature and expiry and reconstructs the claims.
// Bad signature, malformed payload and expiry all surface as
// domain.ErrInvalidToken; the distinction is deliberately not exposed.
func (s *TokenService) Verify(token string) (domain.Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !tkn.Valid {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	userID, ok := numericClaim(claims, "user_id")
	if !ok {
		return domain.Claims{}, domain.ErrInvalidToken
	}
	roleID, ok := numericClaim(claims, "role_id")
	if !ok {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	return domain.Claims{
		UserID:    userID,
		RoleID:    roleID,
		ExpiresAt: exp.Time,
	}, nil
}

// numericClaim reads an int64 claim. JSON numbers decode as float64.
func numericClaim(claims jwt.MapClaims, key string) (int64, bool) {
	v, ok := claims[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}
