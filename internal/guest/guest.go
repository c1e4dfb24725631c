// Package guest implements the per-token daily print allowance.
package guest

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/printhaus/receiptd/internal/model"
)

// Entry pairs a token string with its stored info, for admin listing.
type Entry struct {
	Token string
	Info  model.GuestToken
}

// DB is the guest token database. Consume is the only mutating,
// concurrency-sensitive operation: the quota check and the increment happen
// as one atomic step, so two racing requests cannot both win the last unit.
type DB interface {
	// Create issues a new active token.
	Create(name string, quotaPerDay int) (string, error)
	// Revoke soft-deletes a token. Revoked tokens stay listed but fail
	// Validate and Consume. Returns false when the token is unknown.
	Revoke(token string) (bool, error)
	// List returns all tokens, revoked included, newest first.
	List() ([]Entry, error)
	// Validate returns the token info, or nil for unknown/revoked tokens.
	Validate(token string) (*model.GuestToken, error)
	// RemainingToday reports today's unused allowance; 0 for unknown or
	// revoked tokens.
	RemainingToday(token string) (int, error)
	// Consume spends one unit of today's allowance. Returns nil when the
	// token is unknown, revoked, or out of quota.
	Consume(token string) (*model.GuestToken, error)

	Close() error
}

// newToken returns an opaque, unguessable token string.
func newToken() string {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// dayKey is the calendar date in the guests' timezone, so "today" matches
// what a human guest expects.
func dayKey(now time.Time, tz *time.Location) string {
	return now.In(tz).Format("2006-01-02")
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Guest"
	}
	return name
}
