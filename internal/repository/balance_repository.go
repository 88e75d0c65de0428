package repository

import (
	"context"
	"database/sql"

	"github.com/classmint/classmint-server/internal/model"
)

// BalanceRepo maintains per-user running balances.  Credits and
// debits are idempotency-naive arithmetic adjustments; the wallet
// service ensures each adjustment happens exactly once per business
// event by running it inside the claim or purchase transaction.
type BalanceRepo struct {
	db *sql.DB
}

// NewBalanceRepo returns a BalanceRepo bound to the given database.
func NewBalanceRepo(db *sql.DB) *BalanceRepo { return &BalanceRepo{db: db} }

// Get returns the user's balance, or a zero balance when no row
// exists yet.  Rows are created lazily on first adjustment, so
// absence is not an error.
func (r *BalanceRepo) Get(ctx context.Context, userID uint64) (model.Balance, error) {
	b := model.Balance{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT balance, updated_at FROM user_balances WHERE user_id = ? LIMIT 1`,
		userID).Scan(&b.Balance, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, nil
	}
	return b, err
}

// CreditTx adds amount to the user's balance within the given
// transaction, creating the balance row when it does not exist.
func (r *BalanceRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amount, now int64) error {
	if err := r.ensureRowTx(ctx, tx, userID, now); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE user_balances SET balance = balance + ?, updated_at = ? WHERE user_id = ?`,
		amount, now, userID)
	return err
}

// DebitTx subtracts amount from the user's balance within the given
// transaction.  The balance floor lives in the WHERE clause, making
// the debit a compare-and-set like DecrementStockTx: when the balance
// cannot cover the amount, zero rows are affected and
// ErrInsufficientFunds is returned.  Two concurrent debits therefore
// serialize on the row lock and the loser re-evaluates the floor
// against the winner's committed balance.
func (r *BalanceRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amount, now int64) error {
	if err := r.ensureRowTx(ctx, tx, userID, now); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE user_balances SET balance = balance - ?, updated_at = ? WHERE user_id = ? AND balance >= ?`,
		amount, now, userID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ensureRowTx initializes the balance row at zero when the user has
// never been credited or debited before.  A concurrent transaction may
// create the row between the probe and the insert; the duplicate-key
// failure then just means the row exists, so it is swallowed.
func (r *BalanceRepo) ensureRowTx(ctx context.Context, tx *sql.Tx, userID uint64, now int64) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM user_balances WHERE user_id = ?`, userID).Scan(&exists)
	if err != sql.ErrNoRows {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_balances (user_id, balance, updated_at) VALUES (?, 0, ?)`,
		userID, now)
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

// LeaderboardEntry is one row of the student balance ranking.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// Leaderboard returns all students ordered by balance descending,
// username ascending for ties.  Students without a balance row rank
// with a zero balance.
func (r *BalanceRepo) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	const q = `SELECT u.id, u.username, COALESCE(b.balance, 0) AS balance
	           FROM users u
	           LEFT JOIN user_balances b ON b.user_id = u.id
	           WHERE u.role = ?
	           ORDER BY balance DESC, u.username ASC`
	rows, err := r.db.QueryContext(ctx, q, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Balance); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}
