package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/classmint/classmint-server/internal/model"
)

func newTestItem(name string, price int64, stock int64) *model.Item {
	return &model.Item{
		Name:      name,
		Price:     price,
		Category:  "general",
		Stock:     stock,
		Status:    model.ItemStatusActive,
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}
}

func TestItemCreateUpdateDeactivate(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewItemRepo(db)
	ctx := context.Background()

	it := newTestItem("Sticker", 100, 25)
	if err := repo.Create(ctx, it); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if it.ID == 0 {
		t.Fatal("expected generated item ID")
	}

	it.Price = 150
	it.UpdatedAt = 1100
	if err := repo.Update(ctx, it); err != nil {
		t.Fatalf("Update: %v", err)
	}

	missing := newTestItem("Ghost", 1, 1)
	missing.ID = 999
	if err := repo.Update(ctx, missing); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if err := repo.Deactivate(ctx, it.ID, 1200); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := repo.Deactivate(ctx, 999, 1200); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	active, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active items, got %d", len(active))
	}
	all, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 1 || all[0].Price != 150 || all[0].Status != model.ItemStatusInactive {
		t.Fatalf("unexpected items: %+v", all)
	}
}

func TestItemGetActiveTxFiltersInactive(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewItemRepo(db)
	ctx := context.Background()

	it := newTestItem("Pencil", 200, 5)
	if err := repo.Create(ctx, it); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := withTx(t, db, func(tx *sql.Tx) error {
		got, err := repo.GetActiveTx(ctx, tx, it.ID)
		if err != nil {
			return err
		}
		if got.Name != "Pencil" || got.Stock != 5 {
			t.Fatalf("unexpected item: %+v", got)
		}
		if _, err := repo.GetActiveTx(ctx, tx, 999); err != ErrItemNotFound {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if err := repo.Deactivate(ctx, it.ID, 1100); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	err = withTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.GetActiveTx(ctx, tx, it.ID)
		return err
	})
	if err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound for inactive item, got %v", err)
	}
}

func TestItemDecrementStockGuardsFloor(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewItemRepo(db)
	ctx := context.Background()

	it := newTestItem("Badge", 300, 3)
	if err := repo.Create(ctx, it); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := withTx(t, db, func(tx *sql.Tx) error {
		return repo.DecrementStockTx(ctx, tx, it.ID, 2, 1100)
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}

	err = withTx(t, db, func(tx *sql.Tx) error {
		return repo.DecrementStockTx(ctx, tx, it.ID, 2, 1200)
	})
	if err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var stock int64
	if err := db.QueryRow(`SELECT stock FROM shop_items WHERE id = ?`, it.ID).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 1 {
		t.Fatalf("expected stock 1, got %d", stock)
	}
}
