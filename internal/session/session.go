package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 8 * time.Hour

var ErrNoSession = errors.New("no valid session")

// Manager stores an authenticated identity in an HS256-signed cookie.
type Manager struct {
	key    []byte
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

type Option func(*Manager)

// WithSecureCookie marks the cookie Secure; set it whenever the service is
// reached over https.
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(key []byte, cookieName string, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		key:    key,
		cookie: cookieName,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sign returns the signed session value for id.
func (m *Manager) Sign(id domain.Identity) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub":   id.Username,
		"name":  id.DisplayName,
		"roles": id.Roles,
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a signed session value and returns its identity.
func (m *Manager) Parse(raw string) (*domain.Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.key, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrNoSession
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoSession
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, ErrNoSession
	}
	name, _ := claims["name"].(string)

	var roles []string
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}

	return &domain.Identity{Username: username, DisplayName: name, Roles: roles}, nil
}

// Establish writes the session cookie for id.
func (m *Manager) Establish(c *gin.Context, id domain.Identity) error {
	signed, err := m.Sign(id)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie, signed, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// Load returns the identity from the request's session cookie.
func (m *Manager) Load(c *gin.Context) (*domain.Identity, error) {
	raw, err := c.Cookie(m.cookie)
	if err != nil || raw == "" {
		return nil, ErrNoSession
	}
	return m.Parse(raw)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie, "", -1, "/", "", m.secure, true)
}
