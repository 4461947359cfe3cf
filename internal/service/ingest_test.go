package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/septivank/smart-meter-api/internal/config"
	"github.com/septivank/smart-meter-api/internal/db"
	"github.com/septivank/smart-meter-api/internal/mq"
	"github.com/septivank/smart-meter-api/internal/repository"
	"github.com/septivank/smart-meter-api/internal/service"
	"github.com/septivank/smart-meter-api/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	meters    map[string]*db.Meter
	recorded  []*db.Reading
	recordErr error
}

func (f *fakeStore) GetActiveMeter(ctx context.Context, meterID string) (*db.Meter, error) {
	meter, ok := f.meters[meterID]
	if !ok {
		return nil, repository.ErrMeterNotFound
	}
	return meter, nil
}

func (f *fakeStore) RecordReading(ctx context.Context, reading *db.Reading) (*db.Reading, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	reading.ReadingID = int64(len(f.recorded) + 1)
	reading.CreatedAt = time.Now().UTC()
	f.recorded = append(f.recorded, reading)
	return reading, nil
}

type fakePublisher struct {
	events []mq.ReadingAcceptedEvent
	err    error
}

func (f *fakePublisher) PublishReadingAccepted(ctx context.Context, event mq.ReadingAcceptedEvent, routingKey string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newTestStore() *fakeStore {
	return &fakeStore{
		meters: map[string]*db.Meter{
			"EM-HYDRO-001234": {
				MeterID:    "EM-HYDRO-001234",
				CustomerID: "CUST-001",
				MeterType:  "electric",
				Status:     "active",
			},
		},
	}
}

func newTestService(store service.Store, publisher service.EventPublisher) *service.IngestService {
	cfg := &config.Config{
		ServiceName: "smart-meter-api",
		RabbitMQ: config.RabbitMQConfig{
			AcceptedRoutingKey: "meter.reading.accepted",
		},
	}
	return service.NewIngestService(store, publisher, validator.NewValidator(), cfg, zap.NewNop())
}

func validSubmission() validator.Submission {
	return validator.Submission{
		MeterID:      "EM-HYDRO-001234",
		CustomerID:   "CUST-001",
		ReadingValue: json.RawMessage(`1523.5`),
		ReadingDate:  "2025-06-03T05:00:00Z",
	}
}

func TestSubmitReading(t *testing.T) {
	t.Run("accepts a valid submission and persists it", func(t *testing.T) {
		store := newTestStore()
		svc := newTestService(store, nil)

		result, err := svc.SubmitReading(context.Background(), validSubmission())

		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Reading.ReadingID)
		assert.Equal(t, "electric", result.MeterType)
		assert.Equal(t, 1523.5, result.Reading.ReadingValue)
		assert.Equal(t, time.Date(2025, 6, 3, 5, 0, 0, 0, time.UTC), result.Reading.ReadingDate)
		assert.False(t, result.Reading.CreatedAt.IsZero())

		require.Len(t, store.recorded, 1)
		assert.Equal(t, "CUST-001", store.recorded[0].CustomerID)
	})

	t.Run("rejects an unknown meter without persisting", func(t *testing.T) {
		store := newTestStore()
		svc := newTestService(store, nil)

		sub := validSubmission()
		sub.MeterID = "EM-UNKNOWN-000000"

		_, err := svc.SubmitReading(context.Background(), sub)

		require.ErrorIs(t, err, repository.ErrMeterNotFound)
		assert.Empty(t, store.recorded)
	})

	t.Run("rejects a customer that does not own the meter", func(t *testing.T) {
		store := newTestStore()
		svc := newTestService(store, nil)

		sub := validSubmission()
		sub.CustomerID = "CUST-002"

		_, err := svc.SubmitReading(context.Background(), sub)

		require.ErrorIs(t, err, service.ErrCustomerMismatch)
		assert.Empty(t, store.recorded)
	})

	t.Run("rejects invalid input before any store round trip", func(t *testing.T) {
		store := newTestStore()
		svc := newTestService(store, nil)

		sub := validSubmission()
		sub.ReadingValue = json.RawMessage(`-1`)

		_, err := svc.SubmitReading(context.Background(), sub)

		var valErr *validator.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Empty(t, store.recorded)
	})

	t.Run("passes duplicate conflicts through unchanged", func(t *testing.T) {
		store := newTestStore()
		store.recordErr = repository.ErrDuplicateReading
		svc := newTestService(store, nil)

		_, err := svc.SubmitReading(context.Background(), validSubmission())

		require.ErrorIs(t, err, repository.ErrDuplicateReading)
	})

	t.Run("publishes an accepted event after commit", func(t *testing.T) {
		store := newTestStore()
		publisher := &fakePublisher{}
		svc := newTestService(store, publisher)

		result, err := svc.SubmitReading(context.Background(), validSubmission())

		require.NoError(t, err)
		require.Len(t, publisher.events, 1)
		assert.Equal(t, result.Reading.ReadingID, publisher.events[0].ReadingID)
		assert.Equal(t, "EM-HYDRO-001234", publisher.events[0].MeterID)
		assert.Equal(t, "electric", publisher.events[0].MeterType)
		assert.Equal(t, "2025-06-03T05:00:00Z", publisher.events[0].ReadingDate)
	})

	t.Run("publish failure does not fail the submission", func(t *testing.T) {
		store := newTestStore()
		publisher := &fakePublisher{err: assert.AnError}
		svc := newTestService(store, publisher)

		result, err := svc.SubmitReading(context.Background(), validSubmission())

		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Reading.ReadingID)
		require.Len(t, store.recorded, 1)
	})

	t.Run("no event is published when the store rejects the reading", func(t *testing.T) {
		store := newTestStore()
		store.recordErr = repository.ErrDuplicateReading
		publisher := &fakePublisher{}
		svc := newTestService(store, publisher)

		_, err := svc.SubmitReading(context.Background(), validSubmission())

		require.Error(t, err)
		assert.Empty(t, publisher.events)
	})
}
