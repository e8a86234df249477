package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvestcast/internal/location"
	"harvestcast/internal/repository"
	"harvestcast/internal/wager"
)

type CycleHandler struct {
	Repo     repository.Repository
	Pool     *wager.Pool
	Selector *location.Selector
}

func (h *CycleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/cycles")
	group.GET("", h.listCycles)
	group.GET("/current", h.currentCycle)
	group.GET("/:id", h.getCycle)
	group.GET("/:id/pool", h.cyclePool)
	group.GET("/:id/resolution", h.cycleResolution)
	group.GET("/:id/payouts", h.cyclePayouts)
	group.GET("/:id/verify", h.verifySelection)
}

func (h *CycleHandler) listCycles(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListCyclesParams{
		Limit:   limit,
		Offset:  offset,
		Phase:   strQueryPtr(c, "phase"),
		OrderBy: "id",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListCycles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountCycles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *CycleHandler) currentCycle(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetCurrentCycle(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no open cycle", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *CycleHandler) getCycle(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return
	}
	item, err := h.Repo.GetCycle(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "cycle not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *CycleHandler) cyclePool(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return
	}
	summary, err := h.Pool.PoolSummary(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, summary, nil)
}

func (h *CycleHandler) cycleResolution(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return
	}
	record, err := h.Repo.GetResolutionRecordByCycle(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if record == nil {
		Error(c, http.StatusNotFound, "cycle not resolved", nil)
		return
	}
	Ok(c, record, nil)
}

func (h *CycleHandler) cyclePayouts(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return
	}
	status := "settled"
	items, err := h.Repo.ListWagers(c.Request.Context(), repository.ListWagersParams{
		Limit:   500,
		CycleID: &id,
		Status:  &status,
		OrderBy: "id",
		Asc:     boolPtr(true),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// verifySelection re-runs the deterministic selection from the stored
// entropy so anyone can audit the reveal.
func (h *CycleHandler) verifySelection(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return
	}
	cycle, err := h.Repo.GetCycle(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if cycle == nil {
		Error(c, http.StatusNotFound, "cycle not found", nil)
		return
	}
	if cycle.LocationID == nil || cycle.BlockEntropy == nil {
		Error(c, http.StatusConflict, "location not revealed yet", nil)
		return
	}
	valid := h.Selector.Validate(cycle.ID, *cycle.BlockEntropy, *cycle.LocationID)
	Ok(c, gin.H{
		"cycle_id":       cycle.ID,
		"location_id":    *cycle.LocationID,
		"selection_hash": cycle.SelectionHash,
		"valid":          valid,
	}, nil)
}
