package password

import (
	"errors"
	"strings"
)

var (
	// ErrTooShort is returned by Hash for passwords under the configured minimum.
	ErrTooShort = errors.New("password too short")
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrUnsupportedHash is returned when no hasher recognises the stored hash.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Hasher hashes new passwords and verifies stored ones.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Upgrader reports whether a stored hash was produced with weaker settings
// than the hasher currently uses.
type Upgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

type recognizer interface {
	Recognizes(encodedHash string) bool
}

// Multi hashes with primary and verifies with whichever hasher recognises the
// stored hash prefix.
type Multi struct {
	primary Hasher
	legacy  []Hasher
}

// NewMulti returns a Multi. Each hasher must also implement Recognizes.
func NewMulti(primary Hasher, legacy ...Hasher) *Multi {
	return &Multi{primary: primary, legacy: legacy}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	h := m.pick(encodedHash)
	if h == nil {
		return false, ErrUnsupportedHash
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for any hash not produced by the primary hasher, and
// for primary hashes the primary itself considers outdated.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	h := m.pick(encodedHash)
	if h == nil {
		return false, ErrUnsupportedHash
	}
	if h != m.primary {
		return true, nil
	}
	if u, ok := h.(Upgrader); ok {
		return u.NeedsUpgrade(encodedHash)
	}
	return false, nil
}

func (m *Multi) pick(encodedHash string) Hasher {
	for _, h := range append([]Hasher{m.primary}, m.legacy...) {
		if r, ok := h.(recognizer); ok && r.Recognizes(encodedHash) {
			return h
		}
	}
	return nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
