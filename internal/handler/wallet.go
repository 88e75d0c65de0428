package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/classmint/classmint-server/internal/queue"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/service"
	"github.com/classmint/classmint-server/internal/utils"
)

// WalletHandler exposes the student-side wallet endpoints: claiming a
// token, viewing the balance with claim history and the class
// leaderboard.
type WalletHandler struct {
	Svc      *service.WalletService
	Balances *repository.BalanceRepo
	Claims   *repository.ClaimRepo
	Users    *repository.UserRepo
}

func NewWalletHandler(w *service.WalletService, b *repository.BalanceRepo, cl *repository.ClaimRepo, u *repository.UserRepo) *WalletHandler {
	if w == nil || b == nil || cl == nil || u == nil {
		panic("nil dependency passed to NewWalletHandler")
	}
	return &WalletHandler{Svc: w, Balances: b, Claims: cl, Users: u}
}

type claimReq struct {
	Token string `json:"token"`
}

type claimResp struct {
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Description   string `json:"description,omitempty"`
	TxID          uint64 `json:"tx_id"`
	BlockHash     string `json:"block_hash"`
}

// Claim redeems a token string for the authenticated student.
func (h *WalletHandler) Claim(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	var req claimReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.Claim(ctx, strings.TrimSpace(req.Token), uid)
	switch err {
	case nil:
	case repository.ErrInvalidToken:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token"})
	case repository.ErrTokenExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "token expired"})
	case repository.ErrTokenInactive, repository.ErrAlreadyClaimed:
		return c.JSON(http.StatusConflict, echo.Map{"error": "token already claimed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
	}

	// Fire-and-forget event for activity logging; a broker outage must
	// not fail the committed claim.
	go func(res *service.ClaimResult, uid uint64) {
		name := ""
		bctx, bcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer bcancel()
		if u, err := h.Users.GetByID(bctx, uid); err == nil {
			name = u.Username
		}
		if err := queue.Publish(bctx, queue.QueueTokenClaimed, queue.TokenClaimedEvent{
			EventID:       uuid.NewString(),
			TxID:          res.TxID,
			TokenID:       res.TokenID,
			ClaimerID:     uid,
			ClaimerName:   name,
			Amount:        res.Amount,
			AmountDisplay: utils.FormatMinorUnits(res.Amount),
			Description:   res.Description,
			BlockHash:     res.BlockHash,
			ClaimedAt:     time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			zap.L().Warn("publish token.claimed failed", zap.Error(err))
		}
	}(res, uid)

	return c.JSON(http.StatusOK, claimResp{
		Amount:        res.Amount,
		AmountDisplay: utils.FormatMinorUnits(res.Amount),
		Description:   res.Description,
		TxID:          res.TxID,
		BlockHash:     res.BlockHash,
	})
}

// Wallet returns the caller's balance and recent claims.
func (h *WalletHandler) Wallet(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bal, err := h.Balances.Get(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load balance failed"})
	}
	claims, err := h.Claims.ListByUser(ctx, uid, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load claims failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"balance":         bal.Balance,
		"balance_display": utils.FormatMinorUnits(bal.Balance),
		"claims":          claims,
	})
}

// Leaderboard ranks students by balance.  Public and cached.
func (h *WalletHandler) Leaderboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Balances.Leaderboard(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load leaderboard failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"leaderboard": entries})
}

// RecentClaims returns the latest redemptions across the whole class
// (teacher only).
func (h *WalletHandler) RecentClaims(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	claims, err := h.Claims.ListRecent(ctx, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list claims failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": claims})
}

// Students returns the class roster with each student's balance
// (teacher only).
func (h *WalletHandler) Students(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	students, err := h.Users.ListStudents(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list students failed"})
	}
	type studentEntry struct {
		ID             uint64 `json:"id"`
		Username       string `json:"username"`
		Balance        int64  `json:"balance"`
		BalanceDisplay string `json:"balance_display"`
	}
	out := make([]studentEntry, 0, len(students))
	for _, s := range students {
		b, err := h.Balances.Get(ctx, s.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load balance failed"})
		}
		out = append(out, studentEntry{
			ID:             s.ID,
			Username:       s.Username,
			Balance:        b.Balance,
			BalanceDisplay: utils.FormatMinorUnits(b.Balance),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"students": out})
}
