package model

import "time"

// ClientBalances is derived on demand and never stored.
type ClientBalances struct {
	ClientID   string    `json:"client_id"`
	Available  int64     `json:"available"`
	Pending    int64     `json:"pending"`
	Withdrawn  int64     `json:"withdrawn"`
	Total      int64     `json:"total"`
	ComputedAt time.Time `json:"computed_at"`
}
