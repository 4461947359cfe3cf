package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Every statement here is idempotent so the routine can run on each start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id VARCHAR(50) PRIMARY KEY,
		account_number VARCHAR(50) UNIQUE NOT NULL,
		customer_name VARCHAR(100) NOT NULL,
		service_address TEXT NOT NULL,
		utility_type VARCHAR(20) NOT NULL CHECK (utility_type IN ('electric', 'gas', 'water')),
		rate_class VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS meters (
		meter_id VARCHAR(50) PRIMARY KEY,
		customer_id VARCHAR(50) REFERENCES customers(customer_id),
		meter_type VARCHAR(20) NOT NULL,
		manufacturer VARCHAR(50),
		model VARCHAR(50),
		install_date DATE,
		last_reading_date TIMESTAMP,
		status VARCHAR(20) DEFAULT 'active',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS meter_readings (
		reading_id SERIAL PRIMARY KEY,
		meter_id VARCHAR(50) REFERENCES meters(meter_id),
		customer_id VARCHAR(50) REFERENCES customers(customer_id),
		reading_value DECIMAL(12,3) NOT NULL,
		reading_date TIMESTAMP NOT NULL,
		reading_type VARCHAR(20) DEFAULT 'automatic',
		quality_code VARCHAR(10) DEFAULT 'good',
		temperature DECIMAL(5,2),
		voltage DECIMAL(5,2),
		signal_strength INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(meter_id, reading_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_meter_date ON meter_readings(meter_id, reading_date)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_customer ON meter_readings(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_date ON meter_readings(reading_date)`,
	`INSERT INTO customers (customer_id, account_number, customer_name, service_address, utility_type, rate_class)
	VALUES
		('CUST-001', 'ACC-123456', 'Toronto Hydro Customer', '123 Main St, Toronto, ON', 'electric', 'residential'),
		('CUST-002', 'ACC-789012', 'Enbridge Gas Customer', '456 Oak Ave, Toronto, ON', 'gas', 'commercial'),
		('CUST-003', 'ACC-345678', 'City of Toronto Water', '789 Pine Rd, Toronto, ON', 'water', 'residential')
	ON CONFLICT (customer_id) DO NOTHING`,
	`INSERT INTO meters (meter_id, customer_id, meter_type, manufacturer, model, install_date, status)
	VALUES
		('EM-HYDRO-001234', 'CUST-001', 'electric', 'Itron', 'OpenWay CENTRON II', '2023-01-15', 'active'),
		('GM-ENBRIDGE-005678', 'CUST-002', 'gas', 'Sensus', 'iPerl', '2022-06-10', 'active'),
		('WM-TORONTO-009876', 'CUST-003', 'water', 'Neptune', 'E-Coder R900i', '2023-03-22', 'active')
	ON CONFLICT (meter_id) DO NOTHING`,
}

// InitSchema creates tables, indexes and seed rows if they do not exist yet
func InitSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	logger.Info("database schema initialized")
	return nil
}
