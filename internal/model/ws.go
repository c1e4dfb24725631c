package model

import "encoding/json"

type MessageType string

const (
	MessageTypeRegister    MessageType = "register"
	MessageTypeRegistered  MessageType = "registered"
	MessageTypeUnregister  MessageType = "unregister"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypePrintTicket MessageType = "print_ticket"
	MessageTypeQueued      MessageType = "queued"
	MessageTypePrintFailed MessageType = "print_failed"
)

// --- WebSocket Messages ---

type WSMessage struct {
	Type     MessageType     `json:"type"`
	AgentKey string          `json:"agent_key,omitempty"`
	Ticket   json.RawMessage `json:"ticket,omitempty"` // Keep raw to parse into specific structs
	JobID    string          `json:"job_id,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// RenderRequest is the body of a print_ticket message and of the local
// print surface: plain text to be laid out and rasterized.
type RenderRequest struct {
	Title        string   `json:"title,omitempty"`
	Lines        []string `json:"lines"`
	AddTimestamp bool     `json:"add_timestamp"`
	CutPaper     bool     `json:"cut_paper"`
	SenderName   string   `json:"sender_name,omitempty"`
}
