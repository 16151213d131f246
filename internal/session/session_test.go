package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestIssueSetsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, exp, err := m.Issue("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.t.Add(DefaultTTL), exp)

	claims, err := m.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, Purpose, claims.Purpose)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, _, err := m.Issue("alice")
	require.NoError(t, err)

	other, err := NewManager("another-secret", WithClock(clock.Now))
	require.NoError(t, err)
	forged, _, err := other.Issue("alice")
	require.NoError(t, err)

	wrongPurpose, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Purpose: "game_session",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		player   string
		advance  time.Duration
		wantErr  error
		wantText string
	}{
		{name: "valid", token: token, player: "alice"},
		{name: "still valid before expiry", token: token, player: "alice", advance: 9 * time.Minute},
		{name: "wrong subject", token: token, player: "bob", wantErr: ErrWrongSubject, wantText: "does not belong"},
		{name: "expired", token: token, player: "alice", advance: 10 * time.Minute, wantErr: ErrExpired, wantText: "expired"},
		{name: "missing", token: "", player: "alice", wantErr: ErrMissing, wantText: "start a match"},
		{name: "garbage", token: "not.a.jwt", player: "alice", wantErr: ErrInvalidSignature, wantText: "tampered"},
		{name: "foreign signature", token: forged, player: "alice", wantErr: ErrInvalidSignature, wantText: "tampered"},
		{name: "wrong purpose", token: wrongPurpose, player: "alice", wantErr: ErrWrongPurpose, wantText: "not valid"},
	}

	start := clock.t
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = start.Add(tt.advance)
			err := m.Validate(tt.token, tt.player)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, Message(err), tt.wantText)
		})
	}
}

func TestValidateChecksSignatureBeforeSubject(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(t, clock)
	other, err := NewManager("another-secret", WithClock(clock.Now))
	require.NoError(t, err)

	forged, _, err := other.Issue("mallory")
	require.NoError(t, err)

	assert.ErrorIs(t, m.Validate(forged, "alice"), ErrInvalidSignature)
}

func TestValidateChecksSubjectBeforeExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(t, clock)

	token, _, err := m.Issue("alice")
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Hour)

	assert.ErrorIs(t, m.Validate(token, "bob"), ErrWrongSubject)
}

func TestTokenIsReusableUntilExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(t, clock)

	token, _, err := m.Issue("alice")
	require.NoError(t, err)

	for range 3 {
		assert.NoError(t, m.Validate(token, "alice"))
	}
}

func TestWithTTL(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m, err := NewManager("s", WithClock(clock.Now), WithTTL(time.Minute))
	require.NoError(t, err)

	token, _, err := m.Issue("alice")
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Minute)
	assert.ErrorIs(t, m.Validate(token, "alice"), ErrExpired)
}
