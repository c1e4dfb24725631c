package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- Print Job ---

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusSent     JobStatus = "sent"
	JobStatusOverflow JobStatus = "overflow"
)

// PrintJob is one rendered, encoded print request awaiting delivery.
// The JSON shape is also the persisted record format.
type PrintJob struct {
	ID        string            `json:"id"`
	BitmapB64 string            `json:"bitmap_b64"`
	Cut       int               `json:"cut"`
	Meta      map[string]string `json:"meta"`
	CreatedAt float64           `json:"created_at"` // unix seconds
	Status    JobStatus         `json:"status"`
}

// NewJobID returns a creation-time-ordered id. The zero-padded millisecond
// prefix keeps lexicographic order equal to creation order; the uuid suffix
// disambiguates jobs created within the same millisecond.
func NewJobID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%013d-%s", now.UnixMilli(), suffix)
}
