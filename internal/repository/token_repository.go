package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/classmint/classmint-server/internal/model"
)

// TokenRepo persists reward tokens and owns their lifecycle
// transitions.  Status changes are expressed as conditional updates
// guarded by the current status so concurrent writers cannot race a
// transition: ACTIVE→USED happens exactly once, ACTIVE→VOID only from
// ACTIVE.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span multiple repositories.
func (r *TokenRepo) DB() *sql.DB { return r.db }

// Create inserts a new ACTIVE token row and populates its generated
// ID.  Validation of amount and duration happens in the service layer
// before the row is built.
func (r *TokenRepo) Create(ctx context.Context, t *model.Token) error {
	const q = `INSERT INTO tokens (token, amount, one_time, expires_at, issued_by, status, created_at, description)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.TokenString, t.Amount, boolToInt(t.OneTime), t.ExpiresAt, t.IssuedBy, t.Status, t.CreatedAt, t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindByTokenString returns the token row matching the full signed
// token string, or sql.ErrNoRows when absent.
func (r *TokenRepo) FindByTokenString(ctx context.Context, tokenString string) (*model.Token, error) {
	const q = `SELECT id, token, amount, one_time, expires_at, issued_by, status, created_at, description
	           FROM tokens WHERE token = ? LIMIT 1`
	return scanToken(r.db.QueryRowContext(ctx, q, tokenString))
}

// FindByID returns a token row by primary key, or sql.ErrNoRows.
func (r *TokenRepo) FindByID(ctx context.Context, id uint64) (*model.Token, error) {
	const q = `SELECT id, token, amount, one_time, expires_at, issued_by, status, created_at, description
	           FROM tokens WHERE id = ? LIMIT 1`
	return scanToken(r.db.QueryRowContext(ctx, q, id))
}

// FindByTokenStringTx is FindByTokenString scoped to an existing
// transaction so the claim path reads and consumes the token inside
// one atomic unit.
func (r *TokenRepo) FindByTokenStringTx(ctx context.Context, tx *sql.Tx, tokenString string) (*model.Token, error) {
	const q = `SELECT id, token, amount, one_time, expires_at, issued_by, status, created_at, description
	           FROM tokens WHERE token = ? LIMIT 1`
	return scanToken(tx.QueryRowContext(ctx, q, tokenString))
}

// ConsumeTx transitions the token ACTIVE→USED within the given
// transaction and reports whether this caller won the transition.
// The WHERE clause on the current status is the concurrency linchpin:
// any number of claimants can read the token as ACTIVE, but only one
// conditional update can affect a row.
func (r *TokenRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, tokenID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE tokens SET status = ? WHERE id = ? AND status = ?`,
		model.TokenStatusUsed, tokenID, model.TokenStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Void transitions the token ACTIVE→VOID.  Voiding a token that is
// not currently ACTIVE is a silent no-op, so the operation is
// idempotent.
func (r *TokenRepo) Void(ctx context.Context, tokenID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET status = ? WHERE id = ? AND status = ?`,
		model.TokenStatusVoid, tokenID, model.TokenStatusActive)
	return err
}

// List returns the most recent tokens, newest first, bounded by
// limit.
func (r *TokenRepo) List(ctx context.Context, limit int) ([]model.Token, error) {
	const q = `SELECT id, token, amount, one_time, expires_at, issued_by, status, created_at, description
	           FROM tokens ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Token, 0)
	for rows.Next() {
		var t model.Token
		var oneTime int
		if err := rows.Scan(&t.ID, &t.TokenString, &t.Amount, &oneTime, &t.ExpiresAt,
			&t.IssuedBy, &t.Status, &t.CreatedAt, &t.Description); err != nil {
			return nil, err
		}
		t.OneTime = oneTime != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats summarises the token table for the teacher dashboard.
type Stats struct {
	TotalTokens  int64 `json:"total_tokens"`
	TotalClaims  int64 `json:"total_claims"`
	ActiveAmount int64 `json:"active_amount"`
	ChainLength  int64 `json:"chain_length"`
}

// DashboardStats aggregates counts used on the teacher dashboard.
func (r *TokenRepo) DashboardStats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&s.TotalTokens); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&s.TotalClaims); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM tokens WHERE status = ?`, model.TokenStatusActive).Scan(&s.ActiveAmount); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger`).Scan(&s.ChainLength); err != nil {
		return s, err
	}
	return s, nil
}

// IsExpired reports whether the token's expiry has passed at the
// given instant.  Expiry is evaluated lazily at claim time; there is
// no background sweeper.
func IsExpired(t *model.Token, now time.Time) bool {
	return now.Unix() > t.ExpiresAt
}

func scanToken(row *sql.Row) (*model.Token, error) {
	var t model.Token
	var oneTime int
	err := row.Scan(&t.ID, &t.TokenString, &t.Amount, &oneTime, &t.ExpiresAt,
		&t.IssuedBy, &t.Status, &t.CreatedAt, &t.Description)
	if err != nil {
		return nil, err
	}
	t.OneTime = oneTime != 0
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
