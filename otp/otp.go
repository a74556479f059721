// Package otp issues and checks one-time login codes sent by email.
//
// Codes live in memory only, keyed by normalized email, and are stored as
// bcrypt hashes. A code is consumed by a successful verification and stops
// working once its TTL has passed or too many wrong guesses were made.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/billbatista/zensplit/balance"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound = errors.New("otp expired or not found, request a new one")
	ErrExpired  = errors.New("otp expired, request a new one")
	ErrMismatch = errors.New("invalid otp")
	ErrNoEmail  = errors.New("email is required")

	ErrTooManyAttempts = errors.New("too many invalid attempts, request a new otp")
)

const (
	DefaultTTL    = 10 * time.Minute
	DefaultLength = 6

	// DefaultMaxAttempts is the number of wrong codes after which the issued
	// code is discarded.
	DefaultMaxAttempts = 5
)

type entry struct {
	hash      []byte
	expiresAt time.Time
	failures  int
}

type Store struct {
	mu          sync.Mutex
	codes       map[string]entry
	ttl         time.Duration
	length      int
	cost        int
	maxAttempts int
	now         func() time.Time
	log         *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.length = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCost sets the bcrypt cost used to hash codes.
func WithCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		codes:       make(map[string]entry),
		ttl:         ttl,
		length:      DefaultLength,
		cost:        bcrypt.DefaultCost,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a new code for email, replacing any previous one.
func (s *Store) Issue(email string) (string, error) {
	key := balance.NormalizeEmail(email)
	if key == "" {
		return "", ErrNoEmail
	}

	code, err := generateCode(s.length)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing otp: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[key] = entry{hash: hash, expiresAt: s.now().Add(s.ttl)}
	return code, nil
}

// Verify checks code against the one issued for email and consumes it on a
// match. An expired code is removed. A wrong code leaves the issued one in
// place until the maximum number of attempts is reached, then discards it.
func (s *Store) Verify(email, code string) error {
	key := balance.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.codes[key]
	if !ok {
		return ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.codes, key)
		return ErrExpired
	}
	if err := bcrypt.CompareHashAndPassword(e.hash, []byte(code)); err != nil {
		e.failures++
		if e.failures >= s.maxAttempts {
			delete(s.codes, key)
			s.log.Warn("otp discarded after repeated failures", "email", key, "attempts", e.failures)
			return ErrTooManyAttempts
		}
		s.codes[key] = e
		return ErrMismatch
	}
	delete(s.codes, key)
	return nil
}

// Sweep drops expired codes and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.codes {
		if now.After(e.expiresAt) {
			delete(s.codes, key)
			removed++
		}
	}
	return removed
}

// Run sweeps the store every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired otps removed", "count", n)
			}
		}
	}
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
