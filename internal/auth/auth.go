package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/config"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidRole  = errors.New("invalid role")
)

// Service issues and validates operator tokens and holds the management PIN.
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
	pinHash   []byte
}

// NewService creates a new authentication service. The management PIN is
// kept only as a bcrypt hash.
func NewService(cfg config.AuthConfig) (*Service, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "default-secret-key-change-in-production"
	}

	exp := cfg.TokenExpiry
	if exp <= 0 {
		exp = 24 * time.Hour
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(cfg.ManagementPIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash management PIN: %w", err)
	}

	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  exp,
		pinHash:   pinHash,
	}, nil
}

// VerifyManagementPIN checks a submitted PIN against the shared management PIN
func (s *Service) VerifyManagementPIN(pin string) bool {
	if pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.pinHash, []byte(pin)) == nil
}

// GenerateToken generates a JWT token for an operator or service
func (s *Service) GenerateToken(subject string, role models.Role) (string, error) {
	if !models.IsValidRole(role) {
		return "", ErrInvalidRole
	}

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"exp":  time.Now().Add(s.tokenExp).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	roleStr, ok := claims["role"].(string)
	if !ok || !models.IsValidRole(models.Role(roleStr)) {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		Subject: subject,
		Role:    models.Role(roleStr),
		Exp:     int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// ServiceToken returns a token source for outbound backend calls. An empty
// role disables the Authorization header.
func (s *Service) ServiceToken(role models.Role) func() (string, error) {
	if role == "" {
		return nil
	}
	return func() (string, error) {
		return s.GenerateToken("vault-dashboard", role)
	}
}
