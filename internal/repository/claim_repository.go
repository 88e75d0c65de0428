package repository

import (
	"context"
	"database/sql"

	"github.com/classmint/classmint-server/internal/model"
)

// ClaimRepo persists token redemptions.  Claim rows are written only
// by the wallet service, inside the claim transaction, after the
// token's ACTIVE→USED transition succeeded.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo returns a ClaimRepo bound to the given database.
func NewClaimRepo(db *sql.DB) *ClaimRepo { return &ClaimRepo{db: db} }

// CreateTx inserts a claim within the given transaction and
// populates the generated ID, which doubles as the ledger tx_id.
func (r *ClaimRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Claim) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO claims (token_id, claimer, amount, created_at) VALUES (?, ?, ?, ?)`,
		c.TokenID, c.Claimer, c.Amount, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ExistsForTokenTx reports whether the token already has a claim,
// read within the given transaction.
func (r *ClaimRepo) ExistsForTokenTx(ctx context.Context, tx *sql.Tx, tokenID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM claims WHERE token_id = ? LIMIT 1`, tokenID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByID returns a claim by primary key, or sql.ErrNoRows.
func (r *ClaimRepo) GetByID(ctx context.Context, id uint64) (*model.Claim, error) {
	var c model.Claim
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token_id, claimer, amount, created_at FROM claims WHERE id = ? LIMIT 1`,
		id).Scan(&c.ID, &c.TokenID, &c.Claimer, &c.Amount, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClaimDetail is a claim joined with its token string for wallet and
// dashboard listings.
type ClaimDetail struct {
	ID          uint64 `json:"id"`
	TokenID     uint64 `json:"token_id"`
	TokenString string `json:"token,omitempty"`
	Claimer     uint64 `json:"claimer"`
	Amount      int64  `json:"amount"`
	CreatedAt   int64  `json:"created_at"`
}

// ListByUser returns the user's most recent claims, newest first,
// bounded by limit.
func (r *ClaimRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]ClaimDetail, error) {
	const q = `SELECT c.id, c.token_id, COALESCE(t.token, ''), c.claimer, c.amount, c.created_at
	           FROM claims c
	           LEFT JOIN tokens t ON t.id = c.token_id
	           WHERE c.claimer = ?
	           ORDER BY c.id DESC
	           LIMIT ?`
	return r.queryDetails(ctx, q, userID, limit)
}

// ListRecent returns the most recent claims across all users.
func (r *ClaimRepo) ListRecent(ctx context.Context, limit int) ([]ClaimDetail, error) {
	const q = `SELECT c.id, c.token_id, COALESCE(t.token, ''), c.claimer, c.amount, c.created_at
	           FROM claims c
	           LEFT JOIN tokens t ON t.id = c.token_id
	           ORDER BY c.id DESC
	           LIMIT ?`
	return r.queryDetails(ctx, q, limit)
}

func (r *ClaimRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]ClaimDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ClaimDetail, 0)
	for rows.Next() {
		var d ClaimDetail
		if err := rows.Scan(&d.ID, &d.TokenID, &d.TokenString, &d.Claimer, &d.Amount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
