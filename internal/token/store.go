package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
)

const (
	DefaultTTL = 5 * time.Minute

	// 32 random bytes, hex encoded: 256 bits of entropy.
	tokenBytes = 32
)

// UserLookup resolves a token subject to its current directory entry.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

type record struct {
	subject   string
	issuedAt  time.Time
	expiresAt time.Time
	consumed  atomic.Bool
}

// Store holds handoff tokens in memory and owns their lifecycle:
// issue, single-use redemption, expiry.
type Store struct {
	users UserLookup
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	records map[string]*record
}

type Option func(*Store)

// WithClock replaces time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewStore(users UserLookup, opts ...Option) *Store {
	s := &Store{
		users:   users,
		ttl:     DefaultTTL,
		now:     time.Now,
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a fresh token for subject and returns it.
func (s *Store) Issue(subject string) string {
	now := s.now()
	rec := &record{
		subject:   subject,
		issuedAt:  now,
		expiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		tok := newToken()
		if _, dup := s.records[tok]; dup {
			continue
		}
		s.records[tok] = rec
		return tok
	}
}

// ValidateAndConsume redeems tok. Only one caller can ever succeed for a
// given token; the consumed flag is flipped with a compare-and-swap, and the
// directory lookup happens after that commit, outside any lock.
func (s *Store) ValidateAndConsume(ctx context.Context, tok string) domain.Redemption {
	s.mu.RLock()
	rec, ok := s.records[tok]
	s.mu.RUnlock()
	if !ok {
		return domain.Rejected(domain.ReasonTokenNotFound)
	}

	// Expired tokens are reported as such and left unconsumed.
	if s.now().After(rec.expiresAt) {
		return domain.Rejected(domain.ReasonTokenExpired)
	}

	if !rec.consumed.CompareAndSwap(false, true) {
		return domain.Rejected(domain.ReasonTokenAlreadyUsed)
	}

	user, err := s.users.FindByUsername(ctx, rec.subject)
	if err != nil {
		// Any lookup failure counts as the subject being gone. The token
		// stays consumed.
		return domain.Rejected(domain.ReasonUserNotFound)
	}
	return domain.Redeemed(user.Identity)
}

// Lookup returns a snapshot of the record for tok.
func (s *Store) Lookup(tok string) (domain.TokenRecord, bool) {
	s.mu.RLock()
	rec, ok := s.records[tok]
	s.mu.RUnlock()
	if !ok {
		return domain.TokenRecord{}, false
	}
	return domain.TokenRecord{
		Token:     tok,
		Subject:   rec.subject,
		IssuedAt:  rec.issuedAt,
		ExpiresAt: rec.expiresAt,
		Consumed:  rec.consumed.Load(),
	}, true
}

// Sweep evicts every record past its expiry, consumed or not, and returns
// how many were removed. Consumed records that have not yet expired are
// kept so replays keep reporting TOKEN_ALREADY_USED.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for tok, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, tok)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Prefix shortens a token for logging.
func Prefix(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8]
}

func newToken() string {
	raw := make([]byte, tokenBytes)
	// crypto/rand.Read never returns an error; it crashes the program
	// irrecoverably if the OS entropy source fails.
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
