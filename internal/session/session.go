// Package session mints and verifies the short-lived match-session tokens
// that gate score submission.
//
// Tokens are stateless HS256 JWTs. There is no revocation list: a token stays
// valid for repeated use until it expires.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose is the only purpose claim accepted by Validate.
const Purpose = "match-session"

// DefaultTTL is the lifetime of a freshly issued token.
const DefaultTTL = 10 * time.Minute

var (
	ErrMissing          = errors.New("session token missing")
	ErrInvalidSignature = errors.New("session token invalid or tampered")
	ErrWrongSubject     = errors.New("session token belongs to another player")
	ErrWrongPurpose     = errors.New("session token not valid for score submission")
	ErrExpired          = errors.New("match session expired")
)

// Message returns the user-facing explanation for a validation failure.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissing):
		return "missing session token, start a match first"
	case errors.Is(err, ErrWrongSubject):
		return "session token does not belong to this player"
	case errors.Is(err, ErrWrongPurpose):
		return "session token is not valid for submitting scores"
	case errors.Is(err, ErrExpired):
		return "match session has expired"
	case errors.Is(err, ErrInvalidSignature):
		return "session token invalid or tampered"
	default:
		return "session token rejected"
	}
}

// Claims is the payload carried by a session token.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Manager issues and validates session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	m := &Manager{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
		// Claims are checked by hand so each failure maps to its own reason.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue mints a token for player. The caller is responsible for checking
// that the player exists.
func (m *Manager) Issue(player string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		Purpose: Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, exp, nil
}

// Validate checks token against expectedPlayer. Signature and structure are
// checked first, then subject, purpose and expiry, in that order.
func (m *Manager) Validate(token, expectedPlayer string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	if claims.Subject != expectedPlayer {
		return ErrWrongSubject
	}
	return m.checkLifetime(claims)
}

// Inspect verifies a token without binding it to a player and returns its
// claims. Purpose and expiry are still enforced.
func (m *Manager) Inspect(token string) (Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Claims{}, err
	}
	if err := m.checkLifetime(claims); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissing
	}
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidSignature)
	}
	return claims, nil
}

func (m *Manager) checkLifetime(claims *Claims) error {
	if claims.Purpose != Purpose {
		return ErrWrongPurpose
	}
	if !m.now().Before(claims.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
