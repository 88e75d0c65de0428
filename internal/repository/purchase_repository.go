package repository

import (
	"context"
	"database/sql"

	"github.com/classmint/classmint-server/internal/model"
)

// PurchaseRepo persists shop purchases.  Purchase rows are written
// only by the wallet service, inside the purchase transaction.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// CreateTx inserts a purchase within the given transaction and
// populates the generated ID, which doubles as the ledger tx_id.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchases (user_id, item_id, quantity, total_price, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.ItemID, p.Quantity, p.TotalPrice, p.Status, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns a purchase by primary key, or sql.ErrNoRows.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (*model.Purchase, error) {
	var p model.Purchase
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, item_id, quantity, total_price, status, created_at FROM purchases WHERE id = ? LIMIT 1`,
		id).Scan(&p.ID, &p.UserID, &p.ItemID, &p.Quantity, &p.TotalPrice, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PurchaseDetail is a purchase joined with user and item information
// for teacher-facing listings.
type PurchaseDetail struct {
	ID         uint64 `json:"id"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	ItemID     uint64 `json:"item_id"`
	ItemName   string `json:"item_name"`
	Category   string `json:"category"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int64  `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// ListAll returns all purchases joined with buyer and item details,
// newest first.
func (r *PurchaseRepo) ListAll(ctx context.Context) ([]PurchaseDetail, error) {
	const q = `SELECT p.id, p.user_id, COALESCE(u.username, ''), p.item_id,
	                  COALESCE(i.name, ''), COALESCE(i.category, ''), COALESCE(i.price, 0),
	                  p.quantity, p.total_price, p.status, p.created_at
	           FROM purchases p
	           LEFT JOIN users u ON u.id = p.user_id
	           LEFT JOIN shop_items i ON i.id = p.item_id
	           ORDER BY p.created_at DESC, p.id DESC`
	return r.queryDetails(ctx, q)
}

// ListByUser returns the user's purchases joined with item details,
// newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]PurchaseDetail, error) {
	const q = `SELECT p.id, p.user_id, COALESCE(u.username, ''), p.item_id,
	                  COALESCE(i.name, ''), COALESCE(i.category, ''), COALESCE(i.price, 0),
	                  p.quantity, p.total_price, p.status, p.created_at
	           FROM purchases p
	           LEFT JOIN users u ON u.id = p.user_id
	           LEFT JOIN shop_items i ON i.id = p.item_id
	           WHERE p.user_id = ?
	           ORDER BY p.created_at DESC, p.id DESC`
	return r.queryDetails(ctx, q, userID)
}

func (r *PurchaseRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]PurchaseDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PurchaseDetail, 0)
	for rows.Next() {
		var d PurchaseDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.Username, &d.ItemID, &d.ItemName,
			&d.Category, &d.UnitPrice, &d.Quantity, &d.TotalPrice, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
