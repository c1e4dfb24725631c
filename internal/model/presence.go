package model

import "time"

// --- Printer Presence ---

const (
	PresenceMethodHeartbeat = "mqtt_heartbeat"
	PresenceMethodProbe     = "mqtt_probe"
	PresenceMethodTCP       = "tcp"
)

// PresenceStatus is a snapshot of whether the physical printer is reachable.
type PresenceStatus struct {
	Online    bool      `json:"online"`
	Method    string    `json:"method"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checked_at"`
	LastSeen  time.Time `json:"last_seen"`
}
