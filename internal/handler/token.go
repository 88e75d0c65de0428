package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/service"
	"github.com/classmint/classmint-server/internal/utils"
)

// TokenHandler exposes the teacher-side token endpoints: minting new
// reward tokens, voiding unclaimed ones and listing issued tokens with
// dashboard aggregates.
type TokenHandler struct {
	Service *service.TokenService
	Tokens  *repository.TokenRepo
}

func NewTokenHandler(svc *service.TokenService, tokens *repository.TokenRepo) *TokenHandler {
	if svc == nil || tokens == nil {
		panic("nil dependency passed to NewTokenHandler")
	}
	return &TokenHandler{Service: svc, Tokens: tokens}
}

type issueTokenReq struct {
	Amount          int64  `json:"amount"`           // value in minor units
	ValidityMinutes int64  `json:"validity_minutes"` // lifetime from now
	Description     string `json:"description"`
}

type tokenResp struct {
	ID            uint64 `json:"id"`
	Token         string `json:"token"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Status        string `json:"status"`
	Description   string `json:"description,omitempty"`
	ExpiresAt     int64  `json:"expires_at"`
	CreatedAt     int64  `json:"created_at"`
}

func toTokenResp(t *model.Token) tokenResp {
	return tokenResp{
		ID:            t.ID,
		Token:         t.TokenString,
		Amount:        t.Amount,
		AmountDisplay: utils.FormatMinorUnits(t.Amount),
		Status:        t.Status,
		Description:   t.Description,
		ExpiresAt:     t.ExpiresAt,
		CreatedAt:     t.CreatedAt,
	}
}

// Issue mints a new single-use token.
func (h *TokenHandler) Issue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	var req issueTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Service.Issue(ctx, req.Amount,
		time.Duration(req.ValidityMinutes)*time.Minute,
		strings.TrimSpace(req.Description), uid)
	switch err {
	case nil:
	case repository.ErrInvalidAmount:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	case repository.ErrInvalidDuration:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validity_minutes must be positive"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusCreated, toTokenResp(t))
}

// Void marks an unclaimed token unusable.  Voiding an already claimed
// or already voided token is a no-op.
func (h *TokenHandler) Void(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Void(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "void token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token voided"})
}

// List returns recently issued tokens, newest first.
func (h *TokenHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tokens, err := h.Tokens.List(ctx, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tokens failed"})
	}
	out := make([]tokenResp, 0, len(tokens))
	for i := range tokens {
		out = append(out, toTokenResp(&tokens[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": out})
}

// Stats returns the teacher dashboard aggregates.
func (h *TokenHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Tokens.DashboardStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}
	return c.JSON(http.StatusOK, s)
}
