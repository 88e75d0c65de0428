// Package signer creates and verifies detached-signature reward
// tokens.  A token string has three dot-separated parts:
//
//	CM1.<base64url(payload)>.<base64url(HMAC-SHA256(secret, payload))>
//
// The payload is compact JSON with a fixed key order so the signed
// bytes are reproducible.  The version tag allows the payload format
// to change later without ambiguity.  Rotating the signing secret
// invalidates every previously issued, still-ACTIVE token; that is an
// accepted operational tradeoff.
package signer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// VersionTag prefixes every token string produced by this package.
const VersionTag = "CM1"

// ErrInvalidToken is returned by Verify for any token that does not
// parse, carries the wrong version tag or fails signature
// verification.  Malformed tokens are an expected input class and
// never panic.
var ErrInvalidToken = errors.New("invalid token")

// Payload is the signed content embedded in a token string.  Field
// order is load-bearing: encoding/json marshals struct fields in
// declaration order and the signature covers the exact serialized
// bytes.
type Payload struct {
	Amount int64  `json:"amount"` // value in minor currency units
	One    int    `json:"one"`    // 1 = single use
	Exp    int64  `json:"exp"`    // unix seconds expiry
	Nonce  string `json:"nonce"`  // random 256-bit hex, unique per issuance
	Desc   string `json:"desc"`   // human-readable description
}

// Signer issues and verifies token strings with a process-wide HMAC
// secret loaded once at startup.
type Signer struct {
	secret []byte
}

// New returns a Signer using the given secret.
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// NewNonce returns a fresh random 256-bit hex nonce for a payload.
func NewNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue serializes the payload deterministically and returns the full
// signed token string.
func (s *Signer) Issue(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sig := s.sign(raw)
	return VersionTag + "." + b64url(raw) + "." + b64url(sig), nil
}

// Verify splits the token into its three parts, checks the version
// tag, decodes both segments and recomputes the HMAC.  The digest
// comparison is constant time.  On any failure it returns
// ErrInvalidToken.
func (s *Signer) Verify(token string) (Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != VersionTag {
		return Payload{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if !hmac.Equal(s.sign(raw), sig) {
		return Payload{}, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}
	return p, nil
}

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func b64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
