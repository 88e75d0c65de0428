package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/queue"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/service"
	"github.com/classmint/classmint-server/internal/utils"
)

// ShopHandler exposes the shop: item listing (public), item management
// (teacher) and purchases (student).
type ShopHandler struct {
	Svc       *service.WalletService
	Items     *repository.ItemRepo
	Purchases *repository.PurchaseRepo
	Users     *repository.UserRepo
}

func NewShopHandler(svc *service.WalletService, items *repository.ItemRepo, purchases *repository.PurchaseRepo, users *repository.UserRepo) *ShopHandler {
	if svc == nil || items == nil || purchases == nil || users == nil {
		panic("nil dependency passed to NewShopHandler")
	}
	return &ShopHandler{Svc: svc, Items: items, Purchases: purchases, Users: users}
}

// ----- DTOs -----

type itemReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       int64   `json:"price"` // minor units
	Category    string  `json:"category"`
	ImageURL    *string `json:"image_url"`
	Stock       int64   `json:"stock"` // -1 = unlimited
}

type itemResp struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        int64   `json:"price"`
	PriceDisplay string  `json:"price_display"`
	Category     string  `json:"category,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	Stock        int64   `json:"stock"`
	Unlimited    bool    `json:"unlimited"`
	Status       string  `json:"status"`
}

func toItemResp(it *model.Item) itemResp {
	return itemResp{
		ID:           it.ID,
		Name:         it.Name,
		Description:  it.Description,
		Price:        it.Price,
		PriceDisplay: utils.FormatMinorUnits(it.Price),
		Category:     it.Category,
		ImageURL:     it.ImageURL,
		Stock:        it.Stock,
		Unlimited:    it.Stock == model.UnlimitedStock,
		Status:       it.Status,
	}
}

// ListItems returns shop items.  Students and anonymous callers see
// only ACTIVE items; teachers may pass ?all=true to include retired
// ones.
func (h *ShopHandler) ListItems(c echo.Context) error {
	activeOnly := true
	if c.QueryParam("all") == "true" {
		if role, _ := c.Get("role").(string); role == "TEACHER" {
			activeOnly = false
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Items.List(ctx, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list items failed"})
	}
	out := make([]itemResp, 0, len(items))
	for i := range items {
		out = append(out, toItemResp(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CreateItem adds a new shop item (teacher only).
func (h *ShopHandler) CreateItem(c echo.Context) error {
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and positive price required"})
	}
	if req.Stock < model.UnlimitedStock {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock"})
	}

	now := time.Now().Unix()
	it := &model.Item{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		Status:      model.ItemStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Create(ctx, it); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create item failed"})
	}
	return c.JSON(http.StatusCreated, toItemResp(it))
}

// UpdateItem replaces an item's editable fields (teacher only).
func (h *ShopHandler) UpdateItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price <= 0 || req.Stock < model.UnlimitedStock {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item fields"})
	}

	it := &model.Item{
		ID:          id,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		UpdatedAt:   time.Now().Unix(),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Update(ctx, it); err != nil {
		if err == repository.ErrItemNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update item failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "item updated"})
}

// DeactivateItem retires an item from the shop without deleting its
// purchase history (teacher only).
func (h *ShopHandler) DeactivateItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Deactivate(ctx, id, time.Now().Unix()); err != nil {
		if err == repository.ErrItemNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate item failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "item deactivated"})
}

type purchaseReq struct {
	ItemID   uint64 `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type purchaseResp struct {
	PurchaseID     uint64 `json:"purchase_id"`
	ItemName       string `json:"item_name"`
	Quantity       int64  `json:"quantity"`
	TotalPrice     int64  `json:"total_price"`
	TotalDisplay   string `json:"total_display"`
	NewBalance     int64  `json:"new_balance"`
	BalanceDisplay string `json:"balance_display"`
	BlockHash      string `json:"block_hash"`
}

// Purchase buys an item for the authenticated student.
func (h *ShopHandler) Purchase(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	var req purchaseReq
	if err := c.Bind(&req); err != nil || req.ItemID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item_id required"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.Purchase(ctx, uid, req.ItemID, req.Quantity)
	switch err {
	case nil:
	case repository.ErrInvalidAmount:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	case repository.ErrItemNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	case repository.ErrInsufficientStock:
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock"})
	case repository.ErrInsufficientFunds:
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient funds"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purchase failed"})
	}

	go func(res *service.PurchaseResult, uid, itemID uint64) {
		name := ""
		bctx, bcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer bcancel()
		if u, err := h.Users.GetByID(bctx, uid); err == nil {
			name = u.Username
		}
		if err := queue.Publish(bctx, queue.QueueItemPurchased, queue.ItemPurchasedEvent{
			EventID:      uuid.NewString(),
			PurchaseID:   res.PurchaseID,
			UserID:       uid,
			UserName:     name,
			ItemID:       itemID,
			ItemName:     res.ItemName,
			Quantity:     res.Quantity,
			TotalPrice:   res.TotalPrice,
			TotalDisplay: utils.FormatMinorUnits(res.TotalPrice),
			NewBalance:   res.NewBalance,
			BlockHash:    res.BlockHash,
			PurchasedAt:  time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			zap.L().Warn("publish item.purchased failed", zap.Error(err))
		}
	}(res, uid, req.ItemID)

	return c.JSON(http.StatusOK, purchaseResp{
		PurchaseID:     res.PurchaseID,
		ItemName:       res.ItemName,
		Quantity:       res.Quantity,
		TotalPrice:     res.TotalPrice,
		TotalDisplay:   utils.FormatMinorUnits(res.TotalPrice),
		NewBalance:     res.NewBalance,
		BalanceDisplay: utils.FormatMinorUnits(res.NewBalance),
		BlockHash:      res.BlockHash,
	})
}

// MyPurchases lists the caller's purchase history.
func (h *ShopHandler) MyPurchases(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Purchases.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list purchases failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": list})
}

// AllPurchases lists every purchase in the class (teacher only).
func (h *ShopHandler) AllPurchases(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Purchases.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list purchases failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": list})
}
