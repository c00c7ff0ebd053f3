package handlers

import (
	"fmt"
	"net/http"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// IngestHandler handles ledger file ingestion endpoints
type IngestHandler struct {
	ingestionSvc *services.IngestionService
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(ingestionSvc *services.IngestionService) *IngestHandler {
	return &IngestHandler{
		ingestionSvc: ingestionSvc,
	}
}

// Ingest handles POST /ingest
// @Summary Ingest a trade or position file
// @Description Upload a CSV_FORMAT1, PIPE_FORMAT2, or YAML_POSITIONS file. The format is inferred from the filename when not given.
// @Tags ingestion
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to ingest"
// @Param file_format formData string false "CSV_FORMAT1 | PIPE_FORMAT2 | YAML_POSITIONS"
// @Success 200 {object} models.IngestResponse
// @Success 207 {object} models.IngestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /ingest [post]
func (h *IngestHandler) Ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "no file provided in request",
		})
		return
	}

	format := models.FileFormat(c.PostForm("file_format"))
	if format == "" {
		inferred, ok := InferFileFormat(fileHeader.Filename)
		if !ok {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: "could not infer file_format from filename; use the file_format form field: CSV_FORMAT1, PIPE_FORMAT2, or YAML_POSITIONS",
			})
			return
		}
		format = inferred
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	ctx, wc := services.NewWarningContext(c.Request.Context())
	report := &services.IngestReport{
		FileName:   fileHeader.Filename,
		FileFormat: format,
	}

	switch format {
	case models.FileFormatCSV, models.FileFormatPipe:
		var parsed *ParsedTrades
		var parseErr error
		if format == models.FileFormatCSV {
			parsed, parseErr = ParseTradeCSV(file, fileHeader.Filename)
		} else {
			parsed, parseErr = ParsePipeTrades(file, fileHeader.Filename)
		}
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: parseErr.Error(),
			})
			return
		}
		report.RecordsProcessed = parsed.Processed
		report.RecordsFailed = len(parsed.Errors)
		report.Errors = parsed.Errors
		report.Warnings = parsed.Warnings
		if err := h.ingestionSvc.IngestTrades(ctx, report, parsed.Trades); err != nil {
			log.Errorf("Ingestion failed for %s: %v", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}

	case models.FileFormatPositions:
		parsed, parseErr := ParseBankPositionsYAML(file, fileHeader.Filename)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: parseErr.Error(),
			})
			return
		}
		report.RecordsProcessed = parsed.Processed
		report.RecordsFailed = len(parsed.Errors)
		report.Errors = parsed.Errors
		report.Warnings = parsed.Warnings
		if err := h.ingestionSvc.IngestPositions(ctx, report, parsed.Positions); err != nil {
			log.Errorf("Ingestion failed for %s: %v", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "unknown file format: " + string(format),
		})
		return
	}

	report.Warnings = append(report.Warnings, wc.Messages()...)

	status := http.StatusOK
	respStatus := "success"
	if report.HasErrors() {
		status = http.StatusMultiStatus
		respStatus = "partial_success"
	}
	c.JSON(status, ingestResponse(report, respStatus))
}

func ingestResponse(report *services.IngestReport, status string) models.IngestResponse {
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	warns := report.Warnings
	if warns == nil {
		warns = []string{}
	}
	return models.IngestResponse{
		FileName:           report.FileName,
		FileFormat:         string(report.FileFormat),
		RecordsProcessed:   report.RecordsProcessed,
		RecordsValid:       report.RecordsValid,
		RecordsFailed:      report.RecordsFailed,
		SuccessRate:        formatRate(report.SuccessRate()),
		NewAccountsCreated: report.NewAccountsCreated,
		CustodiansDetected: report.CustodiansDetected(),
		Errors:             errs,
		Warnings:           warns,
		Status:             status,
	}
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate)
}
