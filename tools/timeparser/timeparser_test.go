package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/smart-meter-api/tools/timeparser"
)

func TestParseReadingTimestamp_UTCShorthand(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03T05:00:00Z")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 5, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, parsed)
	}
}

func TestParseReadingTimestamp_WithOffset(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03T05:00:00+02:00")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 3, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, parsed)
	}
}

func TestParseReadingTimestamp_NoOffset(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03T05:00:00")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 5, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected naive timestamp interpreted as UTC %v, got %v", expected, parsed)
	}

	if parsed.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", parsed.Location())
	}
}

func TestParseReadingTimestamp_FractionalSeconds(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03T05:00:00.250")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 5, 0, 0, 250000000, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, parsed)
	}
}

func TestParseReadingTimestamp_SpaceSeparator(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03 05:00:00")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 5, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, parsed)
	}
}

func TestParseReadingTimestamp_DateOnly(t *testing.T) {
	parsed, err := timeparser.ParseReadingTimestamp("2025-06-03")
	if err != nil {
		t.Fatalf("Expected successful parse, got error: %v", err)
	}

	expected := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, parsed)
	}
}

func TestParseReadingTimestamp_InvalidFormat(t *testing.T) {
	invalid := []string{
		"03/06/2025 05:00:00",
		"not-a-date",
		"",
		"2025-13-40T99:00:00Z",
	}

	for _, dateStr := range invalid {
		if _, err := timeparser.ParseReadingTimestamp(dateStr); err == nil {
			t.Errorf("Expected error for input '%s'", dateStr)
		}
	}
}
