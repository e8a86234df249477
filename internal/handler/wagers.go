package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"harvestcast/internal/repository"
	"harvestcast/internal/wager"
)

type WagerHandler struct {
	Repo repository.Repository
	Pool *wager.Pool
}

func (h *WagerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/wagers")
	group.POST("", h.placeWager)
	group.GET("", h.listWagers)
	group.GET("/:id", h.getWager)
}

type placeWagerRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	CycleID   uint64          `json:"cycle_id" binding:"required"`
	Direction string          `json:"direction" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

func (h *WagerHandler) placeWager(c *gin.Context) {
	if h.Pool == nil {
		Error(c, http.StatusInternalServerError, "wager pool unavailable", nil)
		return
	}
	var req placeWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	item, err := h.Pool.Place(c.Request.Context(), req.UserID, req.CycleID, req.Direction, req.Amount)
	if err != nil {
		Error(c, wagerErrorStatus(err), err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func wagerErrorStatus(err error) int {
	switch {
	case errors.Is(err, wager.ErrCycleNotFound):
		return http.StatusNotFound
	case errors.Is(err, wager.ErrDuplicateWager),
		errors.Is(err, wager.ErrBettingClosed):
		return http.StatusConflict
	case errors.Is(err, wager.ErrInvalidAmount),
		errors.Is(err, wager.ErrStakeTooLarge),
		errors.Is(err, wager.ErrInvalidUser),
		errors.Is(err, wager.ErrUnknownDirection):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (h *WagerHandler) getWager(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid wager id", nil)
		return
	}
	item, err := h.Repo.GetWager(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "wager not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *WagerHandler) listWagers(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListWagersParams{
		Limit:   limit,
		Offset:  offset,
		UserID:  strQueryPtr(c, "user_id"),
		Status:  strQueryPtr(c, "status"),
		OrderBy: "placed_at",
		Asc:     boolPtr(false),
	}
	if raw := intQuery(c, "cycle_id", 0); raw > 0 {
		id := uint64(raw)
		params.CycleID = &id
	}
	items, err := h.Repo.ListWagers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountWagers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
