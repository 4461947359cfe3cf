package db

import (
	"time"
)

// Customer represents a utility customer in the database.
// Customers are created administratively and treated as immutable here.
type Customer struct {
	CustomerID     string  `json:"customer_id"`
	AccountNumber  string  `json:"account_number"`
	CustomerName   string  `json:"customer_name"`
	ServiceAddress string  `json:"service_address"`
	UtilityType    string  `json:"utility_type"`
	RateClass      *string `json:"rate_class"`
}

// Meter represents a physical utility meter owned by exactly one customer.
// CustomerName is populated only on joined list queries.
type Meter struct {
	MeterID         string     `json:"meter_id"`
	CustomerID      string     `json:"customer_id"`
	MeterType       string     `json:"meter_type"`
	Manufacturer    *string    `json:"manufacturer"`
	Model           *string    `json:"model"`
	InstallDate     *time.Time `json:"install_date"`
	LastReadingDate *time.Time `json:"last_reading_date"`
	Status          string     `json:"status"`
	CustomerName    string     `json:"customer_name,omitempty"`
}

// Reading represents one timestamped measurement event for a meter.
// ReadingID and CreatedAt are assigned by the database on insert.
type Reading struct {
	ReadingID      int64     `json:"reading_id"`
	MeterID        string    `json:"meter_id"`
	CustomerID     string    `json:"customer_id"`
	ReadingValue   float64   `json:"reading_value"`
	ReadingDate    time.Time `json:"reading_date"`
	ReadingType    string    `json:"reading_type"`
	QualityCode    string    `json:"quality_code"`
	Temperature    *float64  `json:"temperature"`
	Voltage        *float64  `json:"voltage"`
	SignalStrength *int      `json:"signal_strength"`
	CreatedAt      time.Time `json:"created_at"`
}
