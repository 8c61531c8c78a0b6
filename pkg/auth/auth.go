package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/leave-scheduler-go/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// PasswordCost is the bcrypt cost used by HashPassword
var PasswordCost = 14

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidKey    = errors.New("invalid key format")
	ErrBadSignature  = errors.New("invalid signature")
	ErrMissingSecret = errors.New("signing secret is not configured")
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs admin tokens and integration keys
type Manager struct {
	secret       []byte
	masterSecret []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewManager creates a Manager. An empty jwtSecret is replaced by a random
// one, so tokens do not survive a restart.
func NewManager(jwtSecret, apiMasterSecret string, ttl time.Duration) *Manager {
	if jwtSecret == "" {
		jwtSecret = RandomSecret()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:       []byte(jwtSecret),
		masterSecret: []byte(apiMasterSecret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// TTL is the lifetime of issued tokens
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// RandomSecret returns 32 random bytes, hex encoded
func RandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// CreateToken creates a new JWT token for a user
func (m *Manager) CreateToken(username string) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(m.secret)
}

// VerifyToken verifies a JWT token
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) sign(client string) string {
	h := hmac.New(sha256.New, m.masterSecret)
	h.Write([]byte(client))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateAPIKey creates a signed integration key for a client name
func (m *Manager) GenerateAPIKey(client string) (string, error) {
	if len(m.masterSecret) == 0 {
		return "", ErrMissingSecret
	}
	if client == "" || strings.Contains(client, ".") {
		return "", fmt.Errorf("client name %q: %w", client, ErrInvalidKey)
	}
	return client + "." + m.sign(client), nil
}

// VerifyAPIKey validates an integration key and returns its client name
func (m *Manager) VerifyAPIKey(key string) (string, error) {
	if len(m.masterSecret) == 0 {
		return "", ErrMissingSecret
	}
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", ErrInvalidKey
	}

	client, provided := parts[0], parts[1]
	if !hmac.Equal([]byte(provided), []byte(m.sign(client))) {
		return "", ErrBadSignature
	}
	return client, nil
}

// EnsureAdminExists creates the first admin user when none exists
func EnsureAdminExists(store *database.Store, username, password string, logger *zap.Logger) error {
	count, err := store.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := store.CreateUser(&database.MasterUser{Username: username, PasswordHash: hash}); err != nil {
		return err
	}
	logger.Info("default admin user created", zap.String("username", username))
	return nil
}
