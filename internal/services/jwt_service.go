package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/config"
)

// TokenIssuer identifies this service in the iss claim.
const TokenIssuer = "Vanbook"

// JWTService issues and validates the HS256 access tokens returned to
// clients after signup/login and checked by the auth middleware.
type JWTService interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	ValidateAccessToken(tokenString string) (uuid.UUID, error)
}

type jwtService struct {
	cfg *config.Config
	now func() time.Time
}

func NewJWTService(cfg *config.Config) JWTService {
	return &jwtService{cfg: cfg, now: time.Now}
}

func (s *jwtService) GenerateAccessToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iss": TokenIssuer,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.TokenExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWTSecret)
}

func (s *jwtService) ValidateAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token claims")
	}

	iss, _ := claims["iss"].(string)
	if iss != TokenIssuer {
		return uuid.Nil, errors.New("invalid token issuer")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return uuid.Nil, errors.New("missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(s.now()) {
		return uuid.Nil, jwt.ErrTokenExpired
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errors.New("invalid subject claim")
	}
	return userID, nil
}
