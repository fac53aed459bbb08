package ws

import (
	"encoding/json"
	"log"
	"sync"

	"bookstore/internal/models"
)

// Client is a single WebSocket connection watching one order.
type Client struct {
	OrderTrackingID string
	Send            chan []byte
	Hub             *PaymentHub // set by Register so Close can unregister
	mu              sync.Mutex
	closed          bool
}

func NewClient(orderTrackingID string) *Client {
	return &Client{
		OrderTrackingID: orderTrackingID,
		Send:            make(chan []byte, 16),
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// PaymentMessage is pushed to watchers whenever their order is reconciled.
type PaymentMessage struct {
	Type          string          `json:"type"`
	Payment       *models.Payment `json:"payment"`
	PaymentStatus string          `json:"paymentStatus"`
}

// PaymentHub fans reconciliation results out to the checkout pages watching them.
type PaymentHub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Client]struct{}
}

func NewPaymentHub() *PaymentHub {
	return &PaymentHub{watchers: make(map[string]map[*Client]struct{})}
}

func (h *PaymentHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.watchers[c.OrderTrackingID] == nil {
		h.watchers[c.OrderTrackingID] = make(map[*Client]struct{})
	}
	h.watchers[c.OrderTrackingID][c] = struct{}{}
}

func (h *PaymentHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.watchers[c.OrderTrackingID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.watchers, c.OrderTrackingID)
		}
	}
}

// NotifyPayment sends the payment to every client watching its tracking id.
// Slow clients miss the message rather than block reconciliation.
func (h *PaymentHub) NotifyPayment(p *models.Payment, paymentStatus string) {
	if p == nil || p.OrderTrackingID == "" {
		return
	}
	h.mu.RLock()
	m := h.watchers[p.OrderTrackingID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}
	data, err := json.Marshal(PaymentMessage{Type: "payment", Payment: p, PaymentStatus: paymentStatus})
	if err != nil {
		log.Printf("[WS] marshal payment %s: %v", p.OrderID, err)
		return
	}
	for _, c := range clients {
		c.deliver(data)
	}
}

// WatcherCount returns how many clients watch orderTrackingID.
func (h *PaymentHub) WatcherCount(orderTrackingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[orderTrackingID])
}
