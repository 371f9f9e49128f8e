package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would truncate.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

const maxPasswordBytes = 72

// Passwords hashes and checks account passwords at the configured
// bcrypt cost (BCRYPT_COST).  The zero value uses bcrypt.DefaultCost.
type Passwords struct {
	cost int
}

// NewPasswords clamps cost into bcrypt's accepted range; values below
// the minimum select the default cost.
func NewPasswords(cost int) Passwords {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Passwords{cost: cost}
}

// Cost is the bcrypt cost new hashes are made with.
func (p Passwords) Cost() int {
	if p.cost == 0 {
		return bcrypt.DefaultCost
	}
	return p.cost
}

func (p Passwords) Hash(plain string) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), p.Cost())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p Passwords) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash reports whether hash was made at a different cost than
// the configured one, so a successful login can upgrade it.
func (p Passwords) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err == nil && c != p.Cost()
}
