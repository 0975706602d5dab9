// Package authservice issues short-lived, single-use, purpose-scoped opaque
// tokens (spec §4.2): nb/login, sb/xfr, sb/cal.
package authservice

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultLifetime is used when callers pass a zero lifetime to CreateToken.
const DefaultLifetime = 30 * time.Second

// entry is what the cache actually stores: the caller's payload plus the
// expiry instant, so GetTokenExpiry can answer without a second cache call.
type entry struct {
	payload interface{}
	expires time.Time
}

// Service is an in-memory, TTL-expiring token store. One instance serves
// every purpose; tokens are namespaced "<purpose>\x00<token>" so identical
// random strings minted under different purposes never collide.
type Service struct {
	c *cache.Cache
}

// New builds a Service. cleanupInterval controls how often go-cache sweeps
// expired entries in the background; it does not affect correctness since
// lookups always check expiry themselves.
func New(cleanupInterval time.Duration) *Service {
	return &Service{c: cache.New(cache.NoExpiration, cleanupInterval)}
}

func key(purpose, token string) string {
	return purpose + "\x00" + token
}

func newTokenString() (string, error) {
	buf := make([]byte, 18) // 144 bits, comfortably over the 128-bit floor
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateToken mints a fresh token for purpose carrying payload, valid for
// lifetime (DefaultLifetime if zero).
func (s *Service) CreateToken(purpose string, payload interface{}, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	token, err := newTokenString()
	if err != nil {
		return "", err
	}
	exp := time.Now().Add(lifetime)
	s.c.Set(key(purpose, token), entry{payload: payload, expires: exp}, lifetime)
	return token, nil
}

// GetToken returns the payload for (purpose, token), or (nil, false) if the
// token is unknown or expired. It does not consume the token.
func (s *Service) GetToken(purpose, token string) (interface{}, bool) {
	v, ok := s.c.Get(key(purpose, token))
	if !ok {
		return nil, false
	}
	e := v.(entry)
	return e.payload, true
}

// PopToken atomically retrieves and deletes the token; a second call for the
// same (purpose, token) always returns (nil, false) (P7).
func (s *Service) PopToken(purpose, token string) (interface{}, bool) {
	k := key(purpose, token)
	v, ok := s.c.Get(k)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	// Add fails when the key already exists, so only one concurrent caller
	// can claim the token; every other caller sees a miss.
	if err := s.c.Add(k+"\x00popped", struct{}{}, time.Until(e.expires)+time.Second); err != nil {
		return nil, false
	}
	s.c.Delete(k)
	return e.payload, true
}

// GetTokenExpiry returns the unix-seconds expiry of the token, or
// (0, false) if unknown/expired.
func (s *Service) GetTokenExpiry(purpose, token string) (int64, bool) {
	v, ok := s.c.Get(key(purpose, token))
	if !ok {
		return 0, false
	}
	return v.(entry).expires.Unix(), true
}
