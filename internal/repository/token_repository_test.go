package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/classmint/classmint-server/internal/model"
)

func insertTestToken(t *testing.T, repo *TokenRepo, tokenString string, amount int64, expiresAt int64) *model.Token {
	t.Helper()
	tok := &model.Token{
		TokenString: tokenString,
		Amount:      amount,
		OneTime:     true,
		ExpiresAt:   expiresAt,
		CreatedAt:   1000,
		IssuedBy:    1,
		Status:      model.TokenStatusActive,
	}
	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tok.ID == 0 {
		t.Fatal("expected generated token ID")
	}
	return tok
}

func TestConsumeTxWinsOnce(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewTokenRepo(db)
	ctx := context.Background()

	tok := insertTestToken(t, repo, "CM1.a.b", 500, 9999999999)

	var winner bool
	err := withTx(t, db, func(tx *sql.Tx) error {
		var err error
		winner, err = repo.ConsumeTx(ctx, tx, tok.ID)
		return err
	})
	if err != nil || !winner {
		t.Fatalf("expected first consume to win, got winner=%v err=%v", winner, err)
	}

	err = withTx(t, db, func(tx *sql.Tx) error {
		var err error
		winner, err = repo.ConsumeTx(ctx, tx, tok.ID)
		return err
	})
	if err != nil || winner {
		t.Fatalf("expected second consume to lose, got winner=%v err=%v", winner, err)
	}

	got, err := repo.FindByID(ctx, tok.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.TokenStatusUsed {
		t.Fatalf("expected USED, got %s", got.Status)
	}
}

func TestVoidIsIdempotentAndFinal(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewTokenRepo(db)
	ctx := context.Background()

	tok := insertTestToken(t, repo, "CM1.c.d", 200, 9999999999)

	if err := repo.Void(ctx, tok.ID); err != nil {
		t.Fatalf("Void: %v", err)
	}
	if err := repo.Void(ctx, tok.ID); err != nil {
		t.Fatalf("second Void: %v", err)
	}

	// A voided token cannot be consumed.
	var winner bool
	err := withTx(t, db, func(tx *sql.Tx) error {
		var err error
		winner, err = repo.ConsumeTx(ctx, tx, tok.ID)
		return err
	})
	if err != nil || winner {
		t.Fatalf("expected consume of voided token to lose, got winner=%v err=%v", winner, err)
	}

	got, _ := repo.FindByID(ctx, tok.ID)
	if got.Status != model.TokenStatusVoid {
		t.Fatalf("expected VOID, got %s", got.Status)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Unix(2000, 0)
	live := &model.Token{ExpiresAt: 2001}
	dead := &model.Token{ExpiresAt: 1999}
	if IsExpired(live, now) {
		t.Fatal("token expiring in the future reported expired")
	}
	if !IsExpired(dead, now) {
		t.Fatal("token past expiry reported live")
	}
	// Expiry boundary is inclusive: a token is live at its exact expiry second.
	edge := &model.Token{ExpiresAt: 2000}
	if IsExpired(edge, now) {
		t.Fatal("token at exact expiry second reported expired")
	}
}

func TestDashboardStats(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewTokenRepo(db)
	ctx := context.Background()

	insertTestToken(t, repo, "CM1.e.f", 500, 9999999999)
	used := insertTestToken(t, repo, "CM1.g.h", 300, 9999999999)
	err := withTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.ConsumeTx(ctx, tx, used.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ConsumeTx: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO claims (token_id, claimer, amount, created_at) VALUES (?, 2, 300, 1000)`, used.ID); err != nil {
		t.Fatalf("insert claim: %v", err)
	}

	s, err := repo.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if s.TotalTokens != 2 || s.TotalClaims != 1 || s.ActiveAmount != 500 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
