// Package prices loads daily close prices for the optimizer from the SQLite
// price table and from the CSV price cache.
package prices

import "time"

// DailyPrice is one close price. Date is midnight UTC.
type DailyPrice struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// SymbolSummary describes the stored history of one symbol.
type SymbolSummary struct {
	Symbol    string    `json:"symbol"`
	Count     int       `json:"count"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
}

// ImportSummary reports the outcome of a directory import.
type ImportSummary struct {
	Files   int               `json:"files"`
	Symbols []string          `json:"symbols"`
	Rows    int               `json:"rows"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// DefaultPeriod is the period of the CSV cache files the loader falls back to.
const DefaultPeriod = "2y"

const dateLayout = "2006-01-02"

// ParseDate parses the date part of a timestamp such as "2024-03-01" or
// "2024-03-01 00:00:00-05:00" and returns midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}
