package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// ErrInvalidCode is returned when a submitted one-time code does not match
// the expected value (or has expired / was already used in store mode)
var ErrInvalidCode = errors.New("invalid code")

// CodeVerifier issues and checks one-time codes. Two implementations exist:
// a fixed-code one matching the original mock flow, and a store-backed one
// generating random single-use codes.
type CodeVerifier interface {
	// Issue produces the code expected for the given email
	Issue(email string) (string, error)
	// Verify checks a submitted code for the given email
	Verify(email, code string) error
}

// FixedCodeVerifier accepts a single constant code for every email
type FixedCodeVerifier struct {
	Code string
}

func (v FixedCodeVerifier) Issue(email string) (string, error) {
	return v.Code, nil
}

func (v FixedCodeVerifier) Verify(email, code string) error {
	if subtle.ConstantTimeCompare([]byte(code), []byte(v.Code)) != 1 {
		return ErrInvalidCode
	}
	return nil
}

// StoreCodeVerifier issues random 6-digit codes held in an expiring store.
// Codes are single use: a successful verification consumes the entry.
type StoreCodeVerifier struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewStoreCodeVerifier creates a store-backed verifier with the given code
// lifetime
func NewStoreCodeVerifier(ttl time.Duration) *StoreCodeVerifier {
	return &StoreCodeVerifier{
		store: cache.New(ttl, time.Minute),
		ttl:   ttl,
	}
}

func (v *StoreCodeVerifier) Issue(email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	// Re-issuing replaces any outstanding code for the email
	v.store.Set(email, code, v.ttl)
	return code, nil
}

func (v *StoreCodeVerifier) Verify(email, code string) error {
	expected, found := v.store.Get(email)
	if !found {
		return ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(expected.(string))) != 1 {
		return ErrInvalidCode
	}
	v.store.Delete(email)
	return nil
}
