package model

import (
	"encoding/json"
	"time"
)

// Push event names as sent by the backend.
const (
	EventOrderStatusChanged = "order-status-changed"
	EventNewOrder           = "newOrder"
)

type OrderStatusPayload struct {
	OrderID        string    `json:"orderId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      *Actor    `json:"changedBy,omitempty"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type NewOrderPayload struct {
	ID        string    `json:"_id"`
	OrderName string    `json:"orderName"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts the order id under either "_id" or "id".
func (p *NewOrderPayload) UnmarshalJSON(b []byte) error {
	type alias NewOrderPayload
	var raw struct {
		alias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = NewOrderPayload(raw.alias)
	if p.ID == "" {
		p.ID = raw.AltID
	}
	return nil
}

// AlertNotification is the client-local projection of a push event.
type AlertNotification struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	OrderName      string    `json:"orderName,omitempty"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      *Actor    `json:"changedBy,omitempty"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ReceivedAt     time.Time `json:"receivedAt"`
	Read           bool      `json:"read"`
	IsNewOrder     bool      `json:"isNewOrder,omitempty"`
}
