package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role a dashboard session carries.
const RoleAdmin = "ADMIN"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRevoked            = errors.New("session revoked")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is a signed admin token and the moment it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionManager issues and checks admin dashboard sessions.
type SessionManager struct {
	secret       []byte
	ttl          time.Duration
	passwordHash []byte
	now          func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewSessionManager(secret string, ttl time.Duration, passwordHash string) *SessionManager {
	return &SessionManager{
		secret:       []byte(secret),
		ttl:          ttl,
		passwordHash: []byte(passwordHash),
		now:          time.Now,
		revoked:      make(map[string]time.Time),
	}
}

// HashPassword returns the bcrypt hash to configure as the admin password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks password against the configured hash and issues a session.
func (m *SessionManager) Login(password string) (Session, error) {
	if len(m.passwordHash) == 0 || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expires}, nil
}

// Validate parses a session token, rejecting expired and revoked ones.
func (m *SessionManager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	if _, gone := m.revoked[claims.ID]; gone {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (m *SessionManager) Logout(tokenStr string) error {
	claims, err := m.Validate(tokenStr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (m *SessionManager) pruneLocked() {
	now := m.now()
	for id, exp := range m.revoked {
		if !now.Before(exp) {
			delete(m.revoked, id)
		}
	}
}
