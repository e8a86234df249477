package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"harvestcast/internal/repository"
)

type LocationHandler struct {
	Repo repository.Repository
}

func (h *LocationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/locations")
	group.GET("", h.listLocations)
	group.GET("/:id", h.getLocation)
}

func (h *LocationHandler) listLocations(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListLocations(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *LocationHandler) getLocation(c *gin.Context) {
	item, err := h.Repo.GetLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "location not found", nil)
		return
	}
	Ok(c, item, nil)
}

type ResolutionHandler struct {
	Repo repository.Repository
}

func (h *ResolutionHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/resolutions", h.listResolutions)
}

func (h *ResolutionHandler) listResolutions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			parsed = parsed.UTC()
			since = &parsed
		}
	}

	items, err := h.Repo.ListResolutionRecords(c.Request.Context(), repository.ListResolutionRecordsParams{
		Limit:   limit,
		Offset:  offset,
		Outcome: strQueryPtr(c, "outcome"),
		Since:   since,
		OrderBy: "resolved_at",
		Asc:     boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
