package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/classmint/classmint-server/internal/model"
)

func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return nil
}

func TestBalanceGetWithoutRow(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)

	b, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Balance != 0 {
		t.Fatalf("expected zero balance, got %d", b.Balance)
	}
}

func TestBalanceCreditAndDebit(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)
	ctx := context.Background()

	err := withTx(t, db, func(tx *sql.Tx) error {
		return repo.CreditTx(ctx, tx, 1, 500, 1000)
	})
	if err != nil {
		t.Fatalf("CreditTx: %v", err)
	}
	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.CreditTx(ctx, tx, 1, 250, 1001)
	})
	if err != nil {
		t.Fatalf("CreditTx: %v", err)
	}

	b, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Balance != 750 {
		t.Fatalf("expected 750, got %d", b.Balance)
	}

	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.DebitTx(ctx, tx, 1, 300, 1002)
	})
	if err != nil {
		t.Fatalf("DebitTx: %v", err)
	}
	b, _ = repo.Get(ctx, 1)
	if b.Balance != 450 {
		t.Fatalf("expected 450, got %d", b.Balance)
	}
}

func TestBalanceDebitInsufficient(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)
	ctx := context.Background()

	err := withTx(t, db, func(tx *sql.Tx) error {
		return repo.CreditTx(ctx, tx, 1, 100, 1000)
	})
	if err != nil {
		t.Fatalf("CreditTx: %v", err)
	}

	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.DebitTx(ctx, tx, 1, 200, 1001)
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The failed debit must not have touched the balance.
	b, _ := repo.Get(ctx, 1)
	if b.Balance != 100 {
		t.Fatalf("expected 100, got %d", b.Balance)
	}
}

func TestBalanceDebitExactBalance(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)
	ctx := context.Background()

	err := withTx(t, db, func(tx *sql.Tx) error {
		return repo.CreditTx(ctx, tx, 1, 300, 1000)
	})
	if err != nil {
		t.Fatalf("CreditTx: %v", err)
	}

	// The balance floor is inclusive: debiting the full balance is
	// allowed, the very next unit is not.
	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.DebitTx(ctx, tx, 1, 300, 1001)
	})
	if err != nil {
		t.Fatalf("DebitTx: %v", err)
	}
	b, _ := repo.Get(ctx, 1)
	if b.Balance != 0 {
		t.Fatalf("expected 0, got %d", b.Balance)
	}

	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.DebitTx(ctx, tx, 1, 1, 1002)
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestBalanceDebitUserWithoutRow(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)

	err := withTx(t, db, func(tx *sql.Tx) error {
		return repo.DebitTx(context.Background(), tx, 9, 1, 1000)
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewBalanceRepo(db)
	ctx := context.Background()

	teacher := insertTestUser(t, db, "ms.frizzle", model.RoleTeacher)
	alice := insertTestUser(t, db, "alice", model.RoleStudent)
	bob := insertTestUser(t, db, "bob", model.RoleStudent)
	carol := insertTestUser(t, db, "carol", model.RoleStudent)

	for _, c := range []struct {
		user   uint64
		amount int64
	}{{alice, 300}, {bob, 800}, {teacher, 9999}} {
		err := withTx(t, db, func(tx *sql.Tx) error {
			return repo.CreditTx(ctx, tx, c.user, c.amount, 1000)
		})
		if err != nil {
			t.Fatalf("CreditTx: %v", err)
		}
	}

	entries, err := repo.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 students, got %d", len(entries))
	}
	if entries[0].UserID != bob || entries[0].Rank != 1 {
		t.Fatalf("expected bob first, got %+v", entries[0])
	}
	if entries[1].UserID != alice {
		t.Fatalf("expected alice second, got %+v", entries[1])
	}
	// carol never claimed anything but still appears with zero balance
	if entries[2].UserID != carol || entries[2].Balance != 0 {
		t.Fatalf("expected carol last with zero balance, got %+v", entries[2])
	}
}
