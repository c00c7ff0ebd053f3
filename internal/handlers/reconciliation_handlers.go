package handlers

import (
	"errors"
	"net/http"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ReconciliationHandler handles ledger-versus-bank reconciliation endpoints
type ReconciliationHandler struct {
	reconciliationSvc *services.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciliationSvc *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationSvc: reconciliationSvc,
	}
}

// Reconcile handles GET /reconciliation
// @Summary Reconcile ledger positions against the bank snapshot
// @Description Projects positions from the trade ledger as of the date and classifies every discrepancy against the bank position file.
// @Tags reconciliation
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.ReconciliationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /reconciliation [get]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	ctx, wc := services.NewWarningContext(c.Request.Context())
	resp, err := h.reconciliationSvc.Run(ctx, date)
	if err != nil {
		if errors.Is(err, services.ErrDateMismatch) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: err.Error(),
			})
			return
		}
		log.Errorf("Reconciliation failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}
