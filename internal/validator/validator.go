package validator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/septivank/smart-meter-api/internal/db"
	"github.com/septivank/smart-meter-api/tools/timeparser"
)

// RequiredFields are the submission fields that must always be present
var RequiredFields = []string{"meter_id", "customer_id", "reading_value"}

// Submission is one raw reading submission as received from the API, before
// any validation. ReadingValue stays raw JSON so both numbers and numeric
// strings are accepted.
type Submission struct {
	MeterID        string          `json:"meter_id"`
	CustomerID     string          `json:"customer_id"`
	ReadingValue   json.RawMessage `json:"reading_value"`
	ReadingDate    string          `json:"reading_date"`
	ReadingType    string          `json:"reading_type"`
	QualityCode    string          `json:"quality_code"`
	Temperature    *float64        `json:"temperature"`
	Voltage        *float64        `json:"voltage"`
	SignalStrength *int            `json:"signal_strength"`
}

// ValidationError describes a rejected submission. Missing is non-empty only
// for the missing-required-fields case and lists every absent field.
type ValidationError struct {
	Reason  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validator checks submissions against the reading acceptance rules
type Validator struct {
	decCtx *apd.Context
}

// NewValidator creates a new submission validator
func NewValidator() *Validator {
	// Matches DECIMAL(12,3) on the readings table
	return &Validator{decCtx: apd.BaseContext.WithPrecision(12)}
}

// ValidateSubmission applies the local checks in order: required fields,
// numeric value, timestamp syntax. On success it returns a Reading populated
// with defaults for unset optional fields; reading_date defaults to now.
func (v *Validator) ValidateSubmission(sub Submission, now time.Time) (*db.Reading, error) {
	var missing []string
	if sub.MeterID == "" {
		missing = append(missing, "meter_id")
	}
	if sub.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if len(sub.ReadingValue) == 0 {
		missing = append(missing, "reading_value")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Reason: "Missing required fields", Missing: missing}
	}

	value, err := v.parseReadingValue(sub.ReadingValue)
	if err != nil {
		return nil, err
	}

	readingDate := now.UTC()
	if sub.ReadingDate != "" {
		readingDate, err = timeparser.ParseReadingTimestamp(sub.ReadingDate)
		if err != nil {
			return nil, &ValidationError{Reason: "Invalid date format. Use ISO 8601 (e.g., 2025-06-03T05:00:00Z)"}
		}
	}

	readingType := sub.ReadingType
	if readingType == "" {
		readingType = "automatic"
	}
	qualityCode := sub.QualityCode
	if qualityCode == "" {
		qualityCode = "good"
	}

	return &db.Reading{
		MeterID:        sub.MeterID,
		CustomerID:     sub.CustomerID,
		ReadingValue:   value,
		ReadingDate:    readingDate,
		ReadingType:    readingType,
		QualityCode:    qualityCode,
		Temperature:    sub.Temperature,
		Voltage:        sub.Voltage,
		SignalStrength: sub.SignalStrength,
	}, nil
}

// parseReadingValue parses the raw JSON value as a finite non-negative
// decimal and quantizes it to the table's 3 fractional digits.
func (v *Validator) parseReadingValue(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	var dec apd.Decimal
	if _, _, err := dec.SetString(s); err != nil || dec.Form != apd.Finite {
		return 0, &ValidationError{Reason: "Invalid reading value - must be a number"}
	}
	if dec.Negative && !dec.IsZero() {
		return 0, &ValidationError{Reason: "Reading value cannot be negative"}
	}

	var quantized apd.Decimal
	if _, err := v.decCtx.Quantize(&quantized, &dec, -3); err != nil {
		return 0, &ValidationError{Reason: "Invalid reading value - must be a number"}
	}

	value, err := quantized.Float64()
	if err != nil {
		return 0, &ValidationError{Reason: "Invalid reading value - must be a number"}
	}
	return value, nil
}
