package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/services"
	"github.com/gin-gonic/gin"
)

// PositionHandler handles per-account holdings queries
type PositionHandler struct {
	positionSvc *services.PositionService
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(positionSvc *services.PositionService) *PositionHandler {
	return &PositionHandler{
		positionSvc: positionSvc,
	}
}

// parseDateParam reads a required YYYY-MM-DD query parameter, writing the
// error response itself on failure.
func parseDateParam(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "'" + name + "' parameter is required",
		})
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "invalid date format, use YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return date, true
}

// Get handles GET /positions
// @Summary Get positions for an account on a date
// @Description Returns the account's holdings with market value, cost basis, and unrealized P&L. Falls back to trade-history valuation when no bank snapshot exists for that date.
// @Tags positions
// @Produce json
// @Param account query string true "Account ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.PositionsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /positions [get]
func (h *PositionHandler) Get(c *gin.Context) {
	accountID := c.Query("account")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "'account' parameter is required",
		})
		return
	}
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	ctx, wc := services.NewWarningContext(c.Request.Context())
	resp, err := h.positionSvc.GetAccountPositions(ctx, accountID, date)
	if err != nil {
		if errors.Is(err, services.ErrNoPositionData) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	if warnings := wc.GetWarnings(); len(warnings) > 0 {
		// Copy before attaching warnings: the cached snapshot is shared.
		withWarnings := *resp
		withWarnings.Warnings = warnings
		resp = &withWarnings
	}
	c.JSON(http.StatusOK, resp)
}
