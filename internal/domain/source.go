package domain

import (
	"encoding/json"
	"time"
)

// Source is a configured listing page. Config holds the raw harvester
// configuration and is decoded only when the source is collected.
type Source struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	BaseURL   string          `json:"baseUrl"`
	Config    json.RawMessage `json:"config"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}
