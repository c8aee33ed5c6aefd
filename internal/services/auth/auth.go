// Package auth гостевые сессии и их JWT токены
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const issuer = "astro-agent"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

type Config struct {
	Secret   string `envconfig:"JWT_SECRET" default:""`
	TTLHours int    `envconfig:"JWT_TTL_HOURS" default:"720"`
}

// Claims полезная нагрузка токена, subject это идентификатор пользователя
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
	Log *slog.Logger
}

// New без секрета генерирует случайный ключ: токены живут до перезапуска процесса
func New(cfg Config, log *slog.Logger) (*Service, error) {
	key := []byte(cfg.Secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate jwt key: %w", err)
		}
		log.Warn("JWT_SECRET is not set, tokens will not survive a restart")
	}
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{key: key, ttl: ttl, now: time.Now, Log: log}, nil
}

// NewGuestID идентификатор вида user_<8 hex>
func NewGuestID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate guest id: %w", err)
	}
	return "user_" + hex.EncodeToString(b), nil
}

// IssueGuest заводит нового гостя и выдаёт ему токен
func (s *Service) IssueGuest() (string, string, error) {
	userID, err := NewGuestID()
	if err != nil {
		return "", "", err
	}
	token, err := s.Issue(userID)
	if err != nil {
		return "", "", err
	}
	s.Log.Debug("guest token issued", "user_id", userID)
	return userID, token, nil
}

func (s *Service) Issue(userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Validate возвращает идентификатор пользователя из токена
func (s *Service) Validate(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	claims := &Claims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
