package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/signer"
)

func TestIssuePersistsSignedToken(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	before := time.Now().Unix()
	tok := env.issue(t, 500, time.Hour, "great answer")

	if !strings.HasPrefix(tok.TokenString, signer.VersionTag+".") {
		t.Fatalf("unexpected token format: %s", tok.TokenString)
	}
	if tok.Status != model.TokenStatusActive {
		t.Fatalf("expected ACTIVE, got %s", tok.Status)
	}
	if tok.Amount != 500 || tok.Description != "great answer" || !tok.OneTime {
		t.Fatalf("unexpected token fields: %+v", tok)
	}
	if tok.ExpiresAt < before+3590 || tok.ExpiresAt > time.Now().Unix()+3610 {
		t.Fatalf("expiry not ~1h out: %d", tok.ExpiresAt)
	}

	// The stored string carries a verifiable signature holding the
	// same amount and expiry as the row.
	p, err := env.signer.Verify(tok.TokenString)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Amount != 500 || p.Exp != tok.ExpiresAt || p.One != 1 {
		t.Fatalf("payload disagrees with row: %+v vs %+v", p, tok)
	}

	got, err := env.tokens.FindByTokenString(ctx, tok.TokenString)
	if err != nil {
		t.Fatalf("FindByTokenString: %v", err)
	}
	if got.ID != tok.ID {
		t.Fatalf("expected id %d, got %d", tok.ID, got.ID)
	}
}

func TestIssueUniqueTokenStrings(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tok := env.issue(t, 100, time.Hour, "")
		if seen[tok.TokenString] {
			t.Fatalf("duplicate token string after %d issues", i)
		}
		seen[tok.TokenString] = true
	}
}

func TestIssueRejectsBadInputs(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	cases := []struct {
		name     string
		amount   int64
		validity time.Duration
		want     error
	}{
		{"zero amount", 0, time.Hour, repository.ErrInvalidAmount},
		{"negative amount", -100, time.Hour, repository.ErrInvalidAmount},
		{"zero validity", 500, 0, repository.ErrInvalidDuration},
		{"negative validity", 500, -time.Minute, repository.ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.tokens.Issue(ctx, tc.amount, tc.validity, "", 1); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// No rows may leak from rejected issues.
	var n int64
	env.db.QueryRow(`SELECT COUNT(*) FROM tokens`).Scan(&n)
	if n != 0 {
		t.Fatalf("expected no token rows, got %d", n)
	}
}

func TestFindByTokenStringUnknown(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	if _, err := env.tokens.FindByTokenString(context.Background(), "CM1.x.y"); err != repository.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
