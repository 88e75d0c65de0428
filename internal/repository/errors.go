// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as services and handlers to distinguish between different
// failure scenarios without string matching. All of them represent
// expected, recoverable outcomes; infrastructure failures are
// returned as wrapped driver errors instead.
package repository

import (
	"errors"
	"strings"
)

// ErrInvalidAmount is returned when a token is issued with a
// non-positive amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidDuration is returned when a token is issued with a
// non-positive validity duration.
var ErrInvalidDuration = errors.New("invalid duration")

// ErrInvalidToken is returned for token strings that do not parse or
// are not correctly signed, and for token strings with no stored row.
var ErrInvalidToken = errors.New("invalid token")

// ErrTokenInactive is returned when the token exists but its status
// is not ACTIVE (already used or voided).
var ErrTokenInactive = errors.New("token inactive")

// ErrTokenExpired is returned when the token's expiry has passed at
// claim time, regardless of its stored status.
var ErrTokenExpired = errors.New("token expired")

// ErrAlreadyClaimed is returned when a claim exists for the token or
// when a concurrent claimant consumed the token first.
var ErrAlreadyClaimed = errors.New("token already claimed")

// ErrItemNotFound is returned when a purchase references a missing or
// inactive shop item.
var ErrItemNotFound = errors.New("item not found")

// ErrInsufficientStock is returned when a finite-stock item has fewer
// units left than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInsufficientFunds is returned when a debit would take a balance
// below zero. The floor is part of the debit's WHERE clause, so the
// check and the adjustment are one atomic statement.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrChainIntegrity is returned when ledger verification finds a
// block whose recomputed hash does not match the stored one. Trust in
// the chain is broken from that block forward; no automatic repair is
// attempted.
var ErrChainIntegrity = errors.New("chain integrity violation")

// ErrUsernameExists is returned when registering a user with a taken
// username.
var ErrUsernameExists = errors.New("username already exists")

// isDuplicateKey reports whether err is a unique-constraint violation.
// MySQL reports duplicate keys as error 1062; SQLite as "UNIQUE
// constraint failed".
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique")
}
