package models

import "time"

// Quote is the last known price for a symbol.
type Quote struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	FetchedAt   time.Time `json:"fetched_at"`
	LastUpdated string    `json:"last_updated"` // human-readable, e.g. "2 minutes ago"
}

// Candle represents one OHLCV bucket of a historical series.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
