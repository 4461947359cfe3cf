package service

import (
	"context"
	"errors"
	"time"

	"github.com/septivank/smart-meter-api/internal/config"
	"github.com/septivank/smart-meter-api/internal/db"
	"github.com/septivank/smart-meter-api/internal/mq"
	"github.com/septivank/smart-meter-api/internal/validator"
	"go.uber.org/zap"
)

// ErrCustomerMismatch is returned when the submitted customer does not own
// the referenced meter.
var ErrCustomerMismatch = errors.New("customer does not match meter")

// Store is the storage surface the ingestion pipeline needs
type Store interface {
	GetActiveMeter(ctx context.Context, meterID string) (*db.Meter, error)
	RecordReading(ctx context.Context, reading *db.Reading) (*db.Reading, error)
}

// EventPublisher publishes post-commit events. May be nil-valued off when
// events are disabled.
type EventPublisher interface {
	PublishReadingAccepted(ctx context.Context, event mq.ReadingAcceptedEvent, routingKey string) error
}

// Result is the outcome of an accepted submission
type Result struct {
	Reading   *db.Reading
	MeterType string
}

// IngestService validates and commits reading submissions
type IngestService struct {
	store     Store
	publisher EventPublisher
	validator *validator.Validator
	cfg       *config.Config
	logger    *zap.Logger
}

// NewIngestService creates a new ingestion service. publisher may be nil when
// event publishing is disabled.
func NewIngestService(
	store Store,
	publisher EventPublisher,
	v *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:     store,
		publisher: publisher,
		validator: v,
		cfg:       cfg,
		logger:    logger,
	}
}

// SubmitReading runs the full ingestion pipeline for one submission:
// local validation, active-meter lookup, ownership check, then the
// transactional commit. Checks run cheapest first so malformed input never
// costs a store round trip.
func (s *IngestService) SubmitReading(ctx context.Context, sub validator.Submission) (*Result, error) {
	reading, err := s.validator.ValidateSubmission(sub, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	meter, err := s.store.GetActiveMeter(ctx, reading.MeterID)
	if err != nil {
		return nil, err
	}

	if meter.CustomerID != reading.CustomerID {
		return nil, ErrCustomerMismatch
	}

	stored, err := s.store.RecordReading(ctx, reading)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reading recorded",
		zap.Int64("reading_id", stored.ReadingID),
		zap.String("meter_id", stored.MeterID),
		zap.Float64("reading_value", stored.ReadingValue),
	)

	// Publish after the commit; the store is the system of record, so a
	// publish failure is logged and never surfaced to the caller.
	if s.publisher != nil {
		event := mq.ReadingAcceptedEvent{
			ReadingID:    stored.ReadingID,
			MeterID:      stored.MeterID,
			CustomerID:   stored.CustomerID,
			MeterType:    meter.MeterType,
			ReadingValue: stored.ReadingValue,
			ReadingDate:  stored.ReadingDate.Format(time.RFC3339),
			ReadingType:  stored.ReadingType,
			QualityCode:  stored.QualityCode,
		}
		if err := s.publisher.PublishReadingAccepted(ctx, event, s.cfg.RabbitMQ.AcceptedRoutingKey); err != nil {
			s.logger.Error("failed to publish reading accepted event",
				zap.Error(err),
				zap.Int64("reading_id", stored.ReadingID),
			)
		}
	}

	return &Result{Reading: stored, MeterType: meter.MeterType}, nil
}
