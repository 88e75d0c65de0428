package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classmint/classmint-server/internal/repository"
)

// LedgerHandler exposes read-only views of the hash-chained ledger:
// full-chain verification, an aggregate status and single-block lookup.
type LedgerHandler struct {
	Ledger *repository.LedgerRepo
}

func NewLedgerHandler(l *repository.LedgerRepo) *LedgerHandler {
	if l == nil {
		panic("nil dependency passed to NewLedgerHandler")
	}
	return &LedgerHandler{Ledger: l}
}

// Verify replays the whole chain and reports the first broken block,
// if any.
func (h *LedgerHandler) Verify(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.Ledger.VerifyChain(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify failed"})
	}
	return c.JSON(http.StatusOK, res)
}

// Status returns chain aggregates plus a window of recent blocks.
func (h *LedgerHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Ledger.Status(ctx, 20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load status failed"})
	}
	return c.JSON(http.StatusOK, st)
}

// Blocks returns every block in chain order for inspection tooling.
func (h *LedgerHandler) Blocks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	blocks, err := h.Ledger.ListBlocks(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list blocks failed"})
	}
	out := make([]blockResp, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockResp{
			BlockID:   b.ID,
			TxID:      b.TxID,
			PrevHash:  b.PrevHash,
			Hash:      b.RecordHash,
			CreatedAt: b.CreatedAt,
			BlockData: json.RawMessage(b.BlockData),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"blocks": out})
}

type blockResp struct {
	BlockID   uint64          `json:"block_id"`
	TxID      uint64          `json:"tx_id"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	CreatedAt int64           `json:"created_at"`
	BlockData json.RawMessage `json:"block_data,omitempty"`
}

// Block looks up the block recorded for a transaction ID.
func (h *LedgerHandler) Block(c echo.Context) error {
	txID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tx id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Ledger.FindByTxID(ctx, txID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load block failed"})
	}
	return c.JSON(http.StatusOK, blockResp{
		BlockID:   b.ID,
		TxID:      b.TxID,
		PrevHash:  b.PrevHash,
		Hash:      b.RecordHash,
		CreatedAt: b.CreatedAt,
		BlockData: json.RawMessage(b.BlockData),
	})
}
