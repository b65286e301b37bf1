package types

import "time"

const StatusActive = "active"

// Alert is a price target waiting for its symbol to reach it.
type Alert struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Target    float64   `json:"target"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Triggered reports whether currentPrice meets or exceeds the target.
func (a Alert) Triggered(currentPrice float64) bool {
	return currentPrice >= a.Target
}
