package events

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestShouldBroadcastEvent(t *testing.T) {
	tests := []struct {
		name      string
		config    *HubConfig
		eventType EventType
		expected  bool
	}{
		{
			name:      "NilConfig",
			config:    nil,
			eventType: EventTypeClassification,
			expected:  false,
		},
		{
			name:      "ClassificationsEnabled",
			config:    &HubConfig{BroadcastClassifications: true},
			eventType: EventTypeClassification,
			expected:  true,
		},
		{
			name:      "ClassificationsDisabled",
			config:    &HubConfig{BroadcastConnections: true},
			eventType: EventTypeClassification,
			expected:  false,
		},
		{
			name:      "ConnectionsEnabled",
			config:    &HubConfig{BroadcastConnections: true},
			eventType: EventTypeConnection,
			expected:  true,
		},
		{
			name:      "UnknownType",
			config:    &HubConfig{BroadcastClassifications: true, BroadcastSystem: true, BroadcastConnections: true},
			eventType: EventType("bogus"),
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(tt.config, zap.NewNop())
			if got := h.shouldBroadcastEvent(tt.eventType); got != tt.expected {
				t.Errorf("shouldBroadcastEvent(%q) = %v, want %v", tt.eventType, got, tt.expected)
			}
		})
	}
}

func TestShouldSendToClient(t *testing.T) {
	h := NewHub(&HubConfig{BroadcastClassifications: true}, zap.NewNop())
	event := Event{Type: EventTypeClassification, Timestamp: time.Now()}

	t.Run("NoSubscription", func(t *testing.T) {
		client := &Client{ID: "a", Send: make(chan Event, 1)}
		if !h.shouldSendToClient(client, event) {
			t.Error("expected unsubscribed client to receive all events")
		}
	})

	t.Run("SubscribedType", func(t *testing.T) {
		client := &Client{
			ID:           "b",
			Send:         make(chan Event, 1),
			Subscription: &SubscriptionRequest{Events: []EventType{EventTypeClassification}},
		}
		if !h.shouldSendToClient(client, event) {
			t.Error("expected subscribed client to receive matching event")
		}
	})

	t.Run("UnsubscribedType", func(t *testing.T) {
		client := &Client{
			ID:           "c",
			Send:         make(chan Event, 1),
			Subscription: &SubscriptionRequest{Events: []EventType{EventTypeConnection}},
		}
		if h.shouldSendToClient(client, event) {
			t.Error("expected event to be filtered out by subscription")
		}
	})
}

func TestBroadcastEvictsSaturatedClient(t *testing.T) {
	h := NewHub(&HubConfig{BroadcastClassifications: true}, zap.NewNop())
	event := Event{Type: EventTypeClassification, Timestamp: time.Now()}

	saturated := &Client{ID: "full", Send: make(chan Event, 1)}
	saturated.Send <- event // no capacity left
	healthy := &Client{ID: "ok", Send: make(chan Event, 4)}
	h.clients[saturated] = true
	h.clients[healthy] = true

	h.broadcastEvent(event)

	h.mu.RLock()
	_, stillThere := h.clients[saturated]
	h.mu.RUnlock()
	if stillThere {
		t.Error("expected saturated client to be evicted")
	}
	select {
	case _, open := <-healthy.Send:
		if !open {
			t.Error("healthy client channel was closed")
		}
	default:
		t.Error("expected healthy client to receive the event")
	}
	// Eviction closes the channel; the buffered event drains first
	<-saturated.Send
	if _, open := <-saturated.Send; open {
		t.Error("expected evicted client channel to be closed")
	}
}

func TestBroadcastConcurrent(t *testing.T) {
	h := NewHub(&HubConfig{BroadcastClassifications: true, BroadcastConnections: true}, zap.NewNop())
	exclude := &Client{ID: "self", Send: make(chan Event, 1)}
	h.clients[exclude] = true
	for i := 0; i < 4; i++ {
		h.clients[&Client{ID: "c", Send: make(chan Event, 256)}] = true
	}

	event := Event{Type: EventTypeClassification, Timestamp: time.Now()}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h.broadcastEvent(event)
				h.broadcastToOthers(event, exclude)
			}
		}()
	}
	wg.Wait()

	if stats := h.GetStats(); stats.TotalMessages == 0 {
		t.Error("expected broadcasts to be delivered")
	}
}
