package view

import (
	"orderdesk/internal/api"
	"orderdesk/internal/model"
	"orderdesk/internal/status"
)

const RecentOrders = 5

type Card struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"title"`
	Count  int    `json:"count"`
}

type Dashboard struct {
	Cards  []Card     `json:"cards"`
	Recent []OrderRow `json:"recent"`
	Live   bool       `json:"live"`
	Error  string     `json:"error,omitempty"`
}

// StatsCards renders a leading total card followed by one card per status
// with a non-zero count, in catalog order.
func StatsCards(cat *status.Catalog, stats api.Stats) []Card {
	cards := []Card{{Title: "Total Orders", Count: stats.Total()}}
	for _, s := range cat.Statuses() {
		if n := stats[s]; n > 0 {
			cards = append(cards, Card{Status: s, Title: cat.Label(s), Count: n})
		}
	}
	return cards
}

func BuildDashboard(cat *status.Catalog, f Formatter, stats api.Stats, recent []model.Order, live bool) Dashboard {
	if len(recent) > RecentOrders {
		recent = recent[:RecentOrders]
	}
	return Dashboard{
		Cards:  StatsCards(cat, stats),
		Recent: orderRows(cat, f, recent),
		Live:   live,
	}
}
