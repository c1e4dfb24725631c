package model

// --- Guest Tokens ---

// GuestToken is a per-guest daily print allowance. Used is sparse, keyed by
// calendar date (YYYY-MM-DD) in the service timezone.
type GuestToken struct {
	Name        string         `json:"name"`
	Created     int64          `json:"created"`
	Active      bool           `json:"active"`
	QuotaPerDay int            `json:"quota_per_day"`
	Used        map[string]int `json:"used"`
}
