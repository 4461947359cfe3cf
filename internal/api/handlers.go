package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/septivank/smart-meter-api/internal/config"
	"github.com/septivank/smart-meter-api/internal/db"
	"github.com/septivank/smart-meter-api/internal/logging"
	"github.com/septivank/smart-meter-api/internal/repository"
	"github.com/septivank/smart-meter-api/internal/service"
	"github.com/septivank/smart-meter-api/internal/validator"
	"github.com/septivank/smart-meter-api/tools/timeparser"
	"go.uber.org/zap"
)

const defaultReadingsLimit = 100

// Directory is the read-only store surface the handlers need
type Directory interface {
	Ping(ctx context.Context) error
	ListCustomers(ctx context.Context) ([]db.Customer, error)
	ListMeters(ctx context.Context) ([]db.Meter, error)
	GetMeter(ctx context.Context, meterID string) (*db.Meter, error)
	ListReadings(ctx context.Context, meterID string, opts repository.ReadingsQuery) ([]db.Reading, error)
	Summary(ctx context.Context) (*repository.Summary, error)
}

// Ingestor accepts reading submissions
type Ingestor interface {
	SubmitReading(ctx context.Context, sub validator.Submission) (*service.Result, error)
}

// Handler maps HTTP requests onto the query gateway and ingestion pipeline
type Handler struct {
	directory Directory
	ingest    Ingestor
	cfg       *config.Config
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(directory Directory, ingest Ingestor, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		directory: directory,
		ingest:    ingest,
		cfg:       cfg,
		logger:    logger,
	}
}

// Health reports service liveness and database reachability
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	if err := h.directory.Ping(ctx); err != nil {
		dbStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  dbStatus,
		"service":   h.cfg.ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// TestDB reports store row counts and the server version
func (h *Handler) TestDB(c *gin.Context) {
	summary, err := h.directory.Summary(c.Request.Context())
	if err != nil {
		h.requestLogger(c).Error("failed to query database summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"database": "error", "message": "Connection failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"database":         "connected",
		"postgres_version": summary.PostgresVersion,
		"data_summary": gin.H{
			"customers": summary.Customers,
			"meters":    summary.Meters,
			"readings":  summary.Readings,
		},
	})
}

// GetCustomers lists all customers ordered by name
func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.directory.ListCustomers(c.Request.Context())
	if err != nil {
		h.requestLogger(c).Error("failed to list customers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}
	if customers == nil {
		customers = []db.Customer{}
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"count":     len(customers),
	})
}

// GetMeters lists all meters with the owning customer's name
func (h *Handler) GetMeters(c *gin.Context) {
	meters, err := h.directory.ListMeters(c.Request.Context())
	if err != nil {
		h.requestLogger(c).Error("failed to list meters", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}
	if meters == nil {
		meters = []db.Meter{}
	}

	c.JSON(http.StatusOK, gin.H{
		"meters": meters,
		"count":  len(meters),
	})
}

// SubmitReading accepts one reading submission
func (h *Handler) SubmitReading(c *gin.Context) {
	var sub validator.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	result, err := h.ingest.SubmitReading(c.Request.Context(), sub)
	if err != nil {
		h.writeSubmitError(c, sub, err)
		return
	}

	reading := result.Reading
	c.JSON(http.StatusCreated, gin.H{
		"message":       fmt.Sprintf("Reading recorded successfully for %s meter", result.MeterType),
		"reading_id":    reading.ReadingID,
		"meter_id":      reading.MeterID,
		"customer_id":   reading.CustomerID,
		"reading_value": reading.ReadingValue,
		"reading_date":  reading.ReadingDate.Format(time.RFC3339),
		"meter_type":    result.MeterType,
		"timestamp":     reading.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// writeSubmitError maps pipeline failures onto the error taxonomy:
// validation and ownership faults are 400, unknown/inactive meter 404,
// duplicates 409, anything else a 500.
func (h *Handler) writeSubmitError(c *gin.Context, sub validator.Submission, err error) {
	var valErr *validator.ValidationError
	switch {
	case errors.As(err, &valErr):
		if len(valErr.Missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    valErr.Reason,
				"missing":  valErr.Missing,
				"required": validator.RequiredFields,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Reason})
	case errors.Is(err, repository.ErrMeterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Meter %s not found or inactive", sub.MeterID)})
	case errors.Is(err, service.ErrCustomerMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Customer %s does not match meter %s", sub.CustomerID, sub.MeterID)})
	case errors.Is(err, repository.ErrDuplicateReading):
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate reading for this meter and timestamp"})
	case errors.Is(err, repository.ErrDataIntegrity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Data integrity error"})
	default:
		h.requestLogger(c).Error("failed to record reading",
			zap.Error(err),
			zap.String("meter_id", sub.MeterID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database operation failed"})
	}
}

// GetReadings returns the reading history for one meter
func (h *Handler) GetReadings(c *gin.Context) {
	meterID := c.Param("meter_id")

	limit := defaultReadingsLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	limit = repository.ClampLimit(limit)

	opts := repository.ReadingsQuery{Limit: limit}
	startDateStr := c.Query("start_date")
	if startDateStr != "" {
		t, err := timeparser.ParseReadingTimestamp(startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date format. Use ISO 8601 (e.g., 2025-06-03T05:00:00Z)"})
			return
		}
		opts.StartDate = &t
	}
	endDateStr := c.Query("end_date")
	if endDateStr != "" {
		t, err := timeparser.ParseReadingTimestamp(endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date format. Use ISO 8601 (e.g., 2025-06-03T05:00:00Z)"})
			return
		}
		opts.EndDate = &t
	}

	meter, err := h.directory.GetMeter(c.Request.Context(), meterID)
	if err != nil {
		if errors.Is(err, repository.ErrMeterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Meter %s not found", meterID)})
			return
		}
		h.requestLogger(c).Error("failed to query meter", zap.Error(err), zap.String("meter_id", meterID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	readings, err := h.directory.ListReadings(c.Request.Context(), meterID, opts)
	if err != nil {
		h.requestLogger(c).Error("failed to list readings", zap.Error(err), zap.String("meter_id", meterID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}
	if readings == nil {
		readings = []db.Reading{}
	}

	c.JSON(http.StatusOK, gin.H{
		"meter_info":    meter,
		"readings":      readings,
		"reading_count": len(readings),
		"query_params": gin.H{
			"limit":      limit,
			"start_date": nilIfEmpty(startDateStr),
			"end_date":   nilIfEmpty(endDateStr),
		},
	})
}

func (h *Handler) requestLogger(c *gin.Context) *zap.Logger {
	if requestID := c.GetString(requestIDKey); requestID != "" {
		return logging.WithRequestID(h.logger, requestID)
	}
	return h.logger
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
