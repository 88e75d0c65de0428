package repository

import (
	"context"
	"database/sql"

	"github.com/classmint/classmint-server/internal/model"
)

// ItemRepo manages the shop catalogue.  Items are soft deleted
// (status INACTIVE) so historical purchases keep a valid reference;
// finite stock is decremented with a conditional update that guards
// against overselling under concurrency.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns an ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// Create inserts a new ACTIVE item and populates its generated ID.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	const q = `INSERT INTO shop_items (name, description, price, category, image_url, stock, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		it.Name, it.Description, it.Price, it.Category, it.ImageURL, it.Stock, it.Status, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// Update overwrites the mutable fields of an item.  It returns
// ErrItemNotFound when the item does not exist.
func (r *ItemRepo) Update(ctx context.Context, it *model.Item) error {
	const q = `UPDATE shop_items
	           SET name = ?, description = ?, price = ?, category = ?, stock = ?, status = ?, updated_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		it.Name, it.Description, it.Price, it.Category, it.Stock, it.Status, it.UpdatedAt, it.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Deactivate soft deletes an item by flipping it to INACTIVE.  It
// returns ErrItemNotFound when no row matched.
func (r *ItemRepo) Deactivate(ctx context.Context, itemID uint64, now int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shop_items SET status = ?, updated_at = ? WHERE id = ?`,
		model.ItemStatusInactive, now, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// List returns items ordered by category then name.  When activeOnly
// is set, INACTIVE items are filtered out.
func (r *ItemRepo) List(ctx context.Context, activeOnly bool) ([]model.Item, error) {
	q := `SELECT id, name, description, price, category, image_url, stock, status, created_at, updated_at
	      FROM shop_items`
	args := []interface{}{}
	if activeOnly {
		q += ` WHERE status = ?`
		args = append(args, model.ItemStatusActive)
	}
	q += ` ORDER BY category, name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// GetActiveTx loads an ACTIVE item within the given transaction.  It
// returns ErrItemNotFound for missing or inactive items so the
// purchase path treats both identically.
func (r *ItemRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, itemID uint64) (*model.Item, error) {
	const q = `SELECT id, name, description, price, category, image_url, stock, status, created_at, updated_at
	           FROM shop_items WHERE id = ? AND status = ? LIMIT 1`
	row := tx.QueryRowContext(ctx, q, itemID, model.ItemStatusActive)
	it, err := scanItemRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	return it, err
}

// DecrementStockTx atomically takes quantity units off a finite-stock
// item within the given transaction.  The stock floor in the WHERE
// clause makes the decrement a compare-and-set: when the condition no
// longer holds, zero rows are affected and ErrInsufficientStock is
// returned.  Unlimited-stock items must not be passed here.
func (r *ItemRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, itemID uint64, quantity, now int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE shop_items SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
		quantity, now, itemID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(rows *sql.Rows) (*model.Item, error) { return scanItemRow(rows) }

func scanItemRow(row rowScanner) (*model.Item, error) {
	var it model.Item
	var imageURL sql.NullString
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Category,
		&imageURL, &it.Stock, &it.Status, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		v := imageURL.String
		it.ImageURL = &v
	}
	return &it, nil
}
