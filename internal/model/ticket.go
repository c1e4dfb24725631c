package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- MQTT Wire Payloads ---

// TicketPayload is the message published to the printer topic. The printer
// firmware understands exactly this shape; do not rename fields.
type TicketPayload struct {
	TicketID      string `json:"ticket_id"`
	DataType      string `json:"data_type"`
	DataBase64    string `json:"data_base64"`
	PaperType     int    `json:"paper_type"`
	PaperWidthMM  int    `json:"paper_width_mm"`
	PaperHeightMM int    `json:"paper_height_mm"`
	CutPaper      int    `json:"cut_paper"`
	Source        string `json:"source"`
}

// InboxTicket is a ticket received on the inbox topic from a third-party
// sender. TicketID is optional there.
type InboxTicket struct {
	TicketID      string `json:"ticket_id,omitempty"`
	DataType      string `json:"data_type"`
	DataBase64    string `json:"data_base64"`
	PaperWidthMM  int    `json:"paper_width_mm,omitempty"`
	PaperHeightMM int    `json:"paper_height_mm,omitempty"`
	CutPaper      *int   `json:"cut_paper,omitempty"`
	Source        string `json:"source,omitempty"`
}

// NewTicketID mirrors the id format printers already log and dedupe on.
func NewTicketID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("web-%d-%s", now.UnixMilli(), suffix)
}

// NewTicket wraps an encoded bitmap in the printer wire shape.
func NewTicket(b64 string, cut int, now time.Time) TicketPayload {
	return TicketPayload{
		TicketID:   NewTicketID(now),
		DataType:   "png",
		DataBase64: b64,
		CutPaper:   cut,
		Source:     "printer",
	}
}
