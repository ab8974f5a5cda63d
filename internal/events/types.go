package events

import "time"

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeClassification represents a completed classification
	EventTypeClassification EventType = "classification"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ClassificationEvent is broadcast after each classification completes
type ClassificationEvent struct {
	RequestID  string    `json:"request_id"`
	TextHash   string    `json:"text_hash"`
	TopLabel   string    `json:"top_label"`
	Labels     []string  `json:"labels"`
	Scores     []float64 `json:"scores"`
	MultiLabel bool      `json:"multi_label"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMS float64   `json:"duration_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	ModelPath        string `json:"model_path"`
	PoolSize         int    `json:"pool_size"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest narrows which event types a client receives
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         interface{} // Will be *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
