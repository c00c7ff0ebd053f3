package handlers

import (
	"errors"
	"net/http"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ComplianceHandler handles concentration-limit endpoints
type ComplianceHandler struct {
	complianceSvc *services.ComplianceService
}

// NewComplianceHandler creates a new ComplianceHandler
func NewComplianceHandler(complianceSvc *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{
		complianceSvc: complianceSvc,
	}
}

// Concentration handles GET /compliance/concentration
// @Summary Check concentration violations for a date
// @Description Flags holdings above the configured share of account value, calculated from both the trade ledger and the bank position file.
// @Tags compliance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.ConcentrationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /compliance/concentration [get]
func (h *ComplianceHandler) Concentration(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	ctx, wc := services.NewWarningContext(c.Request.Context())
	resp, err := h.complianceSvc.CheckDate(ctx, date)
	if err != nil {
		if errors.Is(err, services.ErrInvalidThreshold) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: err.Error(),
			})
			return
		}
		log.Errorf("Compliance check failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}
