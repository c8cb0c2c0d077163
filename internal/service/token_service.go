package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/pkg/config"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

// TokenService validates access tokens minted by the identity provider.
type TokenService struct {
	secret   []byte
	audience []string
	opts     []jwt.ParserOption
}

// NewTokenService constructs a token validator from JWT configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenService{secret: []byte(cfg.Secret), audience: cfg.Audience, opts: opts}
}

// ValidateToken parses and verifies a bearer token.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, s.opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !s.audienceAllowed(claims.Audience) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token audience not accepted")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing subject or role")
	}
	return claims, nil
}

// Any configured audience is accepted; no configuration accepts every token.
func (s *TokenService) audienceAllowed(aud jwt.ClaimStrings) bool {
	if len(s.audience) == 0 {
		return true
	}
	for _, want := range s.audience {
		for _, got := range aud {
			if got == want {
				return true
			}
		}
	}
	return false
}
