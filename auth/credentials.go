// Package auth is the credential service: password hashing, password policy,
// signed session tokens and one-time reset tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"restaurant-directory-api/models"
)

const (
	purposeVerifyEmail = "verify-email"

	// ResetTokenTTL bounds how long a forgot-password link stays usable.
	ResetTokenTTL = 10 * time.Minute

	verificationTTL = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token issued for a different purpose")
)

type Claims struct {
	UserID  uuid.UUID       `json:"user_id"`
	Role    models.UserRole `json:"role,omitempty"`
	Email   string          `json:"email,omitempty"`
	Purpose string          `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	secret   []byte
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
}

type Option func(*Service)

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock replaces time.Now for token timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret string, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken creates a signed session JWT for a user
func (s *Service) IssueToken(userID uuid.UUID, role models.UserRole) (string, error) {
	return s.sign(Claims{UserID: userID, Role: role}, s.tokenTTL)
}

// DecodeToken validates a session JWT. Purpose-scoped tokens are rejected.
func (s *Service) DecodeToken(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// IssueVerificationToken binds a user id to the address being verified, so a
// link sent to an old address stops working after an email change.
func (s *Service) IssueVerificationToken(userID uuid.UUID, email string) (string, error) {
	return s.sign(Claims{UserID: userID, Email: email, Purpose: purposeVerifyEmail}, verificationTTL)
}

func (s *Service) DecodeVerificationToken(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposeVerifyEmail {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

func (s *Service) sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewResetToken returns a random token for the reset link and the sha256 hex
// digest that is persisted in its place.
func NewResetToken() (raw, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
