package model

import (
	"sort"
	"time"
)

// StatusHistoryEntry is one immutable status transition record. PreviousStatus
// is empty only on the record written when the order was created.
type StatusHistoryEntry struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId,omitempty"`
	OrderName      string    `json:"orderName,omitempty"`
	AmazonOrderNo  string    `json:"amazonOrderNo,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      Actor     `json:"changedBy"`
	ChangedAt      time.Time `json:"changedAt"`
}

// SortHistory returns a copy of entries ordered newest first.
func SortHistory(entries []StatusHistoryEntry) []StatusHistoryEntry {
	out := make([]StatusHistoryEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out
}
