package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/classmint/classmint-server/internal/model"
)

// LedgerRepo appends to and verifies the hash-chained ledger.  The
// ledger is a single-writer append-only log: AppendTx must run inside
// the same transaction as the business write it chronicles, so a
// rollback never leaves an orphan block and a commit never lacks one.
// Blocks are immutable after commit and may be read concurrently with
// writers.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// BlockEvent is the transaction snapshot committed into a block's
// block_data.  Exactly one of the claim or purchase field sets is
// populated.  The JSON key "claim_data" is kept for purchases too;
// chains written by earlier versions of the system used it for both
// event kinds and the hash input must stay reproducible.
type BlockEvent struct {
	Type        string `json:"type,omitempty"`        // "" for claims, "purchase" for purchases
	Claimer     uint64 `json:"claimer,omitempty"`     // claim: redeeming user
	Amount      int64  `json:"amount,omitempty"`      // claim: credited minor units
	TokenID     uint64 `json:"token_id,omitempty"`    // claim: redeemed token
	UserID      uint64 `json:"user_id,omitempty"`     // purchase: buying user
	ItemID      uint64 `json:"item_id,omitempty"`     // purchase: bought item
	ItemName    string `json:"item_name,omitempty"`   // purchase: item name at purchase time
	Quantity    int64  `json:"quantity,omitempty"`    // purchase: units bought
	TotalPrice  int64  `json:"total_price,omitempty"` // purchase: debited minor units
	Description string `json:"description,omitempty"` // human-readable summary
}

// blockData is the serialized form stored in ledger.block_data.
// Field order is load-bearing: the record hash covers these exact
// bytes and encoding/json marshals fields in declaration order.
type blockData struct {
	TxID      uint64      `json:"tx_id"`
	Timestamp int64       `json:"timestamp"`
	PrevHash  string      `json:"prev_hash"`
	ClaimData *BlockEvent `json:"claim_data"`
}

// AppendTx builds and inserts the next block within the given
// transaction and returns its record hash.  The hash input is the
// previous block's hash, the serialized block data and the block's
// creation timestamp; the same now value appears both inside the
// serialized data and as the trailing hash component so verification
// can replay it exactly.  The caller's transaction must run at
// serializable isolation: the tail read is a plain SELECT, and a
// snapshot read here would let two appenders chain onto the same
// tail.
func (r *LedgerRepo) AppendTx(ctx context.Context, tx *sql.Tx, txID uint64, event *BlockEvent, now int64) (string, error) {
	var prevHash string
	err := tx.QueryRowContext(ctx,
		`SELECT record_hash FROM ledger ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	payload, err := json.Marshal(blockData{
		TxID:      txID,
		Timestamp: now,
		PrevHash:  prevHash,
		ClaimData: event,
	})
	if err != nil {
		return "", err
	}
	recordHash := hashBlock(prevHash, string(payload), now)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger (tx_id, prev_hash, record_hash, created_at, block_data) VALUES (?, ?, ?, ?, ?)`,
		txID, prevHash, recordHash, now, string(payload))
	if err != nil {
		return "", err
	}
	return recordHash, nil
}

// VerifyResult reports the outcome of a full chain replay.  When the
// chain is intact, Valid is true, Length holds the block count and
// LastHash the tail hash.  On the first mismatch, Valid is false and
// BrokenAtBlockID plus both hash values identify the offending block
// for forensic use.
type VerifyResult struct {
	Valid           bool   `json:"valid"`
	Length          int64  `json:"length"`
	LastHash        string `json:"last_hash,omitempty"`
	BrokenAtBlockID uint64 `json:"broken_at_block_id,omitempty"`
	ExpectedHash    string `json:"expected_hash,omitempty"`
	ActualHash      string `json:"actual_hash,omitempty"`
}

// Err returns nil for an intact chain, or ErrChainIntegrity carrying
// the offending block id and both hash values.
func (v VerifyResult) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("%w: block %d expected %s actual %s",
		ErrChainIntegrity, v.BrokenAtBlockID, v.ExpectedHash, v.ActualHash)
}

// VerifyChain replays the ledger from the first block, recomputing
// every record hash from the stored block_data and created_at and
// comparing it with the stored hash.  Blocks written before
// block_data existed are verified against a reconstructed minimal
// payload containing only the tx_id; those legacy blocks still chain
// through prev_hash like any other.
func (r *LedgerRepo) VerifyChain(ctx context.Context) (VerifyResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_id, prev_hash, record_hash, created_at, block_data FROM ledger ORDER BY id ASC`)
	if err != nil {
		return VerifyResult{}, err
	}
	defer rows.Close()

	prev := ""
	var length int64
	for rows.Next() {
		var b model.LedgerBlock
		var data sql.NullString
		if err := rows.Scan(&b.ID, &b.TxID, &b.PrevHash, &b.RecordHash, &b.CreatedAt, &data); err != nil {
			return VerifyResult{}, err
		}
		payload := data.String
		if !data.Valid || payload == "" {
			// Legacy block: reconstruct the minimal payload the old
			// writer hashed.
			legacy, err := json.Marshal(struct {
				TxID uint64 `json:"tx_id"`
			}{TxID: b.TxID})
			if err != nil {
				return VerifyResult{}, err
			}
			payload = string(legacy)
		}
		expected := hashBlock(prev, payload, b.CreatedAt)
		if expected != b.RecordHash {
			return VerifyResult{
				Valid:           false,
				Length:          length,
				BrokenAtBlockID: b.ID,
				ExpectedHash:    expected,
				ActualHash:      b.RecordHash,
			}, nil
		}
		prev = b.RecordHash
		length++
	}
	if err := rows.Err(); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Valid: true, Length: length, LastHash: prev}, nil
}

// BlockSummary is one entry of the recent-block window returned by
// Status, joined with the originating claim where one exists.
type BlockSummary struct {
	BlockID   uint64  `json:"block_id"`
	TxID      uint64  `json:"tx_id"`
	Hash      string  `json:"hash"`
	Timestamp int64   `json:"timestamp"`
	Claimer   *uint64 `json:"claimer,omitempty"`
	Amount    *int64  `json:"amount,omitempty"`
}

// ChainStatus aggregates the ledger for operator tooling.
type ChainStatus struct {
	TotalBlocks       int64          `json:"total_blocks"`
	TotalTransactions int64          `json:"total_transactions"`
	TotalAmount       int64          `json:"total_amount"`
	RecentBlocks      []BlockSummary `json:"recent_blocks"`
}

// Status returns block count, aggregate claimed amount and a bounded
// window of the most recent blocks joined with their originating
// claim's summary.
func (r *LedgerRepo) Status(ctx context.Context, recent int) (ChainStatus, error) {
	var st ChainStatus
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger`).Scan(&st.TotalBlocks); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&st.TotalTransactions); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM claims`).Scan(&st.TotalAmount); err != nil {
		return st, err
	}
	const q = `SELECT l.id, l.tx_id, l.record_hash, l.created_at, c.claimer, c.amount
	           FROM ledger l
	           LEFT JOIN claims c ON l.tx_id = c.id
	           ORDER BY l.id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, recent)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	st.RecentBlocks = make([]BlockSummary, 0, recent)
	for rows.Next() {
		var b BlockSummary
		var claimer sql.NullInt64
		var amount sql.NullInt64
		if err := rows.Scan(&b.BlockID, &b.TxID, &b.Hash, &b.Timestamp, &claimer, &amount); err != nil {
			return st, err
		}
		if claimer.Valid {
			v := uint64(claimer.Int64)
			b.Claimer = &v
		}
		if amount.Valid {
			v := amount.Int64
			b.Amount = &v
		}
		st.RecentBlocks = append(st.RecentBlocks, b)
	}
	return st, rows.Err()
}

// FindByTxID returns the block chronicling the given transaction, or
// sql.ErrNoRows when none exists.
func (r *LedgerRepo) FindByTxID(ctx context.Context, txID uint64) (*model.LedgerBlock, error) {
	const q = `SELECT id, tx_id, prev_hash, record_hash, created_at, block_data
	           FROM ledger WHERE tx_id = ? LIMIT 1`
	var b model.LedgerBlock
	var data sql.NullString
	err := r.db.QueryRowContext(ctx, q, txID).Scan(&b.ID, &b.TxID, &b.PrevHash, &b.RecordHash, &b.CreatedAt, &data)
	if err != nil {
		return nil, err
	}
	b.BlockData = data.String
	return &b, nil
}

// ListBlocks returns all blocks in chain order for inspection UIs.
func (r *LedgerRepo) ListBlocks(ctx context.Context) ([]model.LedgerBlock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_id, prev_hash, record_hash, created_at, block_data FROM ledger ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.LedgerBlock, 0)
	for rows.Next() {
		var b model.LedgerBlock
		var data sql.NullString
		if err := rows.Scan(&b.ID, &b.TxID, &b.PrevHash, &b.RecordHash, &b.CreatedAt, &data); err != nil {
			return nil, err
		}
		b.BlockData = data.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// hashBlock computes SHA-256 over prev hash, serialized block data
// and the block timestamp rendered as a decimal string, hex encoded.
func hashBlock(prevHash, payload string, createdAt int64) string {
	sum := sha256.Sum256([]byte(prevHash + payload + strconv.FormatInt(createdAt, 10)))
	return hex.EncodeToString(sum[:])
}
