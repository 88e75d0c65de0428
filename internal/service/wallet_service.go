package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/signer"
)

// txOptions for claim and purchase transactions.  Serializable
// isolation makes the ledger-tail read a locking read on MySQL, so
// two transactions can never append blocks with the same prev_hash:
// under the default REPEATABLE READ both would read the tail from
// their snapshots and fork the chain.  SQLite transactions are
// serializable already.
var txOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// WalletService coordinates the two multi-step writes of the system:
// claiming a token and purchasing an item.  Each runs as one database
// transaction covering the business rows and the ledger block, so a
// rollback leaves no partial state and a commit always carries its
// block.  The conditional token consumption inside the transaction is
// what makes concurrent claims safe: any number of callers can read
// the token as ACTIVE, only one conditional update wins.
type WalletService struct {
	db        *sql.DB
	Signer    *signer.Signer
	Tokens    *repository.TokenRepo
	Claims    *repository.ClaimRepo
	Balances  *repository.BalanceRepo
	Items     *repository.ItemRepo
	Purchases *repository.PurchaseRepo
	Ledger    *repository.LedgerRepo
}

// NewWalletService constructs a WalletService over a shared database
// handle.  All dependencies must be non-nil.
func NewWalletService(db *sql.DB, s *signer.Signer, tokens *repository.TokenRepo, claims *repository.ClaimRepo,
	balances *repository.BalanceRepo, items *repository.ItemRepo, purchases *repository.PurchaseRepo,
	ledger *repository.LedgerRepo) *WalletService {
	if db == nil || s == nil || tokens == nil || claims == nil || balances == nil || items == nil || purchases == nil || ledger == nil {
		panic("nil dependency passed to NewWalletService")
	}
	return &WalletService{
		db:        db,
		Signer:    s,
		Tokens:    tokens,
		Claims:    claims,
		Balances:  balances,
		Items:     items,
		Purchases: purchases,
		Ledger:    ledger,
	}
}

// ClaimResult reports a successful token redemption.
type ClaimResult struct {
	Amount      int64
	TokenID     uint64
	TxID        uint64
	BlockHash   string
	Description string
}

// Claim redeems a token string for the given user: it verifies the
// signature, consumes the token's ACTIVE status, records the claim,
// credits the balance and appends the ledger block, all in one
// transaction.  Precondition failures return the matching sentinel
// error with no partial writes.
func (w *WalletService) Claim(ctx context.Context, tokenString string, claimer uint64) (*ClaimResult, error) {
	// Signature check before touching the database; malformed and
	// forged tokens are an expected input class.
	if _, err := w.Signer.Verify(tokenString); err != nil {
		return nil, repository.ErrInvalidToken
	}

	tx, err := w.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := w.Tokens.FindByTokenStringTx(ctx, tx, tokenString)
	if err == sql.ErrNoRows {
		return nil, repository.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if t.Status != model.TokenStatusActive {
		return nil, repository.ErrTokenInactive
	}
	now := time.Now()
	if repository.IsExpired(t, now) {
		return nil, repository.ErrTokenExpired
	}
	claimed, err := w.Claims.ExistsForTokenTx(ctx, tx, t.ID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, repository.ErrAlreadyClaimed
	}

	// Conditional ACTIVE->USED consumption; losing the race here
	// means another claimant got between our read and this update.
	won, err := w.Tokens.ConsumeTx(ctx, tx, t.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, repository.ErrAlreadyClaimed
	}

	claim := &model.Claim{
		TokenID:   t.ID,
		Claimer:   claimer,
		Amount:    t.Amount,
		CreatedAt: now.Unix(),
	}
	if err := w.Claims.CreateTx(ctx, tx, claim); err != nil {
		return nil, err
	}
	if err := w.Balances.CreditTx(ctx, tx, claimer, t.Amount, now.Unix()); err != nil {
		return nil, err
	}
	blockHash, err := w.Ledger.AppendTx(ctx, tx, claim.ID, &repository.BlockEvent{
		Claimer:     claimer,
		Amount:      t.Amount,
		TokenID:     t.ID,
		Description: t.Description,
	}, now.Unix())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim transaction: %w", err)
	}
	committed = true

	zap.L().Info("token claimed",
		zap.Uint64("token_id", t.ID),
		zap.Uint64("claimer", claimer),
		zap.Int64("amount", t.Amount),
		zap.String("block_hash", blockHash))
	return &ClaimResult{
		Amount:      t.Amount,
		TokenID:     t.ID,
		TxID:        claim.ID,
		BlockHash:   blockHash,
		Description: t.Description,
	}, nil
}

// PurchaseResult reports a successful shop purchase.
type PurchaseResult struct {
	PurchaseID uint64
	ItemName   string
	Quantity   int64
	TotalPrice int64
	NewBalance int64
	BlockHash  string
}

// Purchase buys quantity units of an item for the given user: it
// checks item status and stock, debits the balance, decrements finite
// stock and appends the ledger block, all in one transaction.
// Insufficient stock or balance are expected, reported outcomes.
func (w *WalletService) Purchase(ctx context.Context, userID, itemID uint64, quantity int64) (*PurchaseResult, error) {
	if quantity <= 0 {
		return nil, repository.ErrInvalidAmount
	}

	tx, err := w.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, fmt.Errorf("begin purchase transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	item, err := w.Items.GetActiveTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Stock != model.UnlimitedStock && item.Stock < quantity {
		return nil, repository.ErrInsufficientStock
	}
	totalPrice := item.Price * quantity
	now := time.Now().Unix()

	purchase := &model.Purchase{
		UserID:     userID,
		ItemID:     itemID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Status:     "COMPLETED",
		CreatedAt:  now,
	}
	if err := w.Purchases.CreateTx(ctx, tx, purchase); err != nil {
		return nil, err
	}
	if err := w.Balances.DebitTx(ctx, tx, userID, totalPrice, now); err != nil {
		return nil, err
	}
	if item.Stock != model.UnlimitedStock {
		if err := w.Items.DecrementStockTx(ctx, tx, itemID, quantity, now); err != nil {
			return nil, err
		}
	}
	blockHash, err := w.Ledger.AppendTx(ctx, tx, purchase.ID, &repository.BlockEvent{
		Type:        "purchase",
		UserID:      userID,
		ItemID:      itemID,
		ItemName:    item.Name,
		Quantity:    quantity,
		TotalPrice:  totalPrice,
		Description: fmt.Sprintf("Purchased %dx %s", quantity, item.Name),
	}, now)
	if err != nil {
		return nil, err
	}

	var newBalance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM user_balances WHERE user_id = ?`, userID).Scan(&newBalance); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase transaction: %w", err)
	}
	committed = true

	zap.L().Info("item purchased",
		zap.Uint64("user_id", userID),
		zap.Uint64("item_id", itemID),
		zap.Int64("quantity", quantity),
		zap.Int64("total_price", totalPrice),
		zap.String("block_hash", blockHash))
	return &PurchaseResult{
		PurchaseID: purchase.ID,
		ItemName:   item.Name,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		NewBalance: newBalance,
		BlockHash:  blockHash,
	}, nil
}
