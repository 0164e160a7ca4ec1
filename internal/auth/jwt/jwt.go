package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
	ErrEmptySecretKey   = errors.New("secret key cannot be empty")
	ErrWeakSecretKey    = errors.New("secret key must be at least 32 characters")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrMalformedClaims  = errors.New("token payload is malformed")
)

// Claims is the payload carried by an access token
type Claims struct {
	UserID           uint      `json:"id"`
	Username         string    `json:"username"`
	Role             cnst.Role `json:"role"`
	IsVerified       bool      `json:"isVerified"`
	EmailVerified    bool      `json:"emailVerified"`
	DeviceID         string    `json:"deviceId,omitempty"`
	EstablishmentIDs []uint    `json:"establishmentIds,omitempty"`
	jwt.RegisteredClaims
}

// CheckPayload checks that the payload identifies a user with a known role
func (c *Claims) CheckPayload() error {
	if c.UserID == 0 || !c.Role.Valid() {
		return ErrMalformedClaims
	}
	if c.Subject != "" && c.Subject != strconv.FormatUint(uint64(c.UserID), 10) {
		return ErrMalformedClaims
	}
	return nil
}

// Service signs and verifies HS256 tokens
type Service struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewService creates a new JWT service
func NewService(cfg config.JWTConfig) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, ErrEmptySecretKey
	}
	if len(cfg.SecretKey) < 32 {
		return nil, ErrWeakSecretKey
	}
	if cfg.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Service{
		secret:   []byte(cfg.SecretKey),
		duration: cfg.Duration,
		now:      time.Now,
	}, nil
}

// GenerateToken signs claims, filling in the registered time fields and subject
func (s *Service) GenerateToken(claims Claims) (string, error) {
	now := s.now()
	if claims.UserID != 0 {
		claims.Subject = strconv.FormatUint(uint64(claims.UserID), 10)
	}
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.duration))
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies the signature and expiry only. Claims must not
// implement the jwt Validate hook; the payload shape is checked separately
// with Claims.CheckPayload.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
