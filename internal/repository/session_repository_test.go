package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/utils"
)

func TestSessionStoreAndValidate(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewSessionRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "alice", model.RoleStudent)
	rt, err := utils.NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	hash := utils.HashRefreshRaw(rt.Raw)

	if err := repo.StoreRefresh(ctx, userID, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}

	got, err := repo.ValidateRefresh(ctx, hash)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if got != userID {
		t.Fatalf("expected user %d, got %d", userID, got)
	}

	if _, err := repo.ValidateRefresh(ctx, "no-such-hash"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSessionValidateRejectsExpired(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewSessionRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "bob", model.RoleStudent)
	if err := repo.StoreRefresh(ctx, userID, "stale-hash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "stale-hash"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows for expired token, got %v", err)
	}
}

func TestSessionRevocation(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewSessionRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "carol", model.RoleStudent)
	exp := time.Now().Add(time.Hour)
	if err := repo.StoreRefresh(ctx, userID, "hash-a", exp); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if err := repo.StoreRefresh(ctx, userID, "hash-b", exp); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}

	if err := repo.RevokeByHash(ctx, "hash-a"); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "hash-a"); err != sql.ErrNoRows {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "hash-b"); err != nil {
		t.Fatalf("expected hash-b to remain valid, got %v", err)
	}

	if err := repo.RevokeAllForUser(ctx, userID); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "hash-b"); err != sql.ErrNoRows {
		t.Fatalf("expected all tokens revoked, got %v", err)
	}
}
