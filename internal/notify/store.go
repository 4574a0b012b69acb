// Package notify keeps the in-memory alert list behind the notification bell.
package notify

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"orderdesk/internal/metrics"
	"orderdesk/internal/model"
	"orderdesk/internal/push"
	"orderdesk/internal/query"
)

// MaxEntries caps the alert list; the oldest entries are evicted first.
const MaxEntries = 50

// Invalidator marks cached reads stale.
type Invalidator interface {
	Invalidate(resource string)
}

// Store is the newest-first alert list. It lives in memory only.
type Store struct {
	toaster Toaster
	cache   Invalidator
	now     func() time.Time

	mu       sync.Mutex
	items    []model.AlertNotification
	lastNano int64
}

func NewStore(toaster Toaster, cache Invalidator) *Store {
	return &Store{
		toaster: toaster,
		cache:   cache,
		now:     time.Now,
	}
}

// Handlers adapts the store to a push subscription.
func (s *Store) Handlers() push.Handlers {
	return push.Handlers{
		OnOrderStatusChanged: s.OnOrderStatusChanged,
		OnNewOrder:           s.OnNewOrder,
	}
}

func (s *Store) OnOrderStatusChanged(p model.OrderStatusPayload) {
	s.mu.Lock()
	at, nano := s.receipt()
	n := model.AlertNotification{
		ID:             p.OrderID + "-" + strconv.FormatInt(nano, 10),
		OrderID:        p.OrderID,
		PreviousStatus: p.PreviousStatus,
		NewStatus:      p.NewStatus,
		ChangedBy:      p.ChangedBy,
		Role:           p.Role,
		CreatedAt:      p.CreatedAt,
		ReceivedAt:     at,
	}
	s.prepend(n)
	s.mu.Unlock()

	s.toast(Toast{
		Title:       "Order Status Updated",
		Description: fmt.Sprintf("%s changed order status from %s to %s", actorName(p), p.PreviousStatus, p.NewStatus),
	})
	s.invalidate(query.Orders, query.OverallOrders, query.Order(p.OrderID), query.AlertHistory)
}

func (s *Store) OnNewOrder(p model.NewOrderPayload) {
	s.mu.Lock()
	at, nano := s.receipt()
	n := model.AlertNotification{
		ID:         "new-" + p.ID + "-" + strconv.FormatInt(nano, 10),
		OrderID:    p.ID,
		OrderName:  p.OrderName,
		NewStatus:  "ORDERED",
		Role:       string(model.RoleSystem),
		CreatedAt:  p.CreatedAt,
		ReceivedAt: at,
		IsNewOrder: true,
	}
	s.prepend(n)
	s.mu.Unlock()

	s.toast(Toast{
		Title:       "New Order Created",
		Description: fmt.Sprintf("New order %q has been created", p.OrderName),
	})
	s.invalidate(query.Orders, query.OverallOrders, query.AlertHistory)
}

// receipt returns the receipt time and a strictly increasing id suffix, so
// two deliveries of the same event never share an id. Callers hold mu.
func (s *Store) receipt() (time.Time, int64) {
	at := s.now()
	nano := at.UnixNano()
	if nano <= s.lastNano {
		nano = s.lastNano + 1
	}
	s.lastNano = nano
	return at, nano
}

// prepend must be called with mu held.
func (s *Store) prepend(n model.AlertNotification) {
	items := make([]model.AlertNotification, 0, min(len(s.items)+1, MaxEntries))
	items = append(items, n)
	items = append(items, s.items...)
	if len(items) > MaxEntries {
		items = items[:MaxEntries]
	}
	s.items = items
	s.publishUnread()
}

// MarkAsRead flags one alert as read. Unknown ids and already-read alerts
// are a no-op; the return value reports whether the id exists.
func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			s.publishUnread()
			return true
		}
	}
	return false
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.publishUnread()
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.publishUnread()
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread()
}

// List returns a copy of the alerts, newest first.
func (s *Store) List() []model.AlertNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AlertNotification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) unread() int {
	n := 0
	for _, it := range s.items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (s *Store) publishUnread() {
	metrics.NotificationsUnread.Set(float64(s.unread()))
}

func (s *Store) toast(t Toast) {
	if s.toaster != nil {
		s.toaster.Toast(t)
	}
}

func (s *Store) invalidate(resources ...string) {
	if s.cache == nil {
		return
	}
	for _, r := range resources {
		s.cache.Invalidate(r)
	}
}

func actorName(p model.OrderStatusPayload) string {
	if p.ChangedBy != nil && p.ChangedBy.Username != "" {
		return p.ChangedBy.Username
	}
	if p.Role != "" {
		return p.Role
	}
	return "System"
}
