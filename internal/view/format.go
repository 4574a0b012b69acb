// Package view turns fetched data into the render-ready models served to the
// UI. Nothing here talks to the network.
package view

import (
	"fmt"
	"time"

	"orderdesk/internal/status"
)

// Formatter renders timestamps in the display timezone.
type Formatter struct {
	loc *time.Location
	now func() time.Time
}

func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{loc: loc, now: time.Now}
}

func (f Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format("January 2, 2006")
}

func (f Formatter) Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format("3:04 PM")
}

func (f Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format("Jan 2, 2006 3:04 PM")
}

// Ago renders t relative to now, e.g. "5 minutes ago".
func (f Formatter) Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := f.now().Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < 45*time.Second:
		return "less than a minute ago"
	case d < 90*time.Second:
		return "1 minute ago"
	case d < 45*time.Minute:
		return fmt.Sprintf("%d minutes ago", int(d.Round(time.Minute)/time.Minute))
	case d < 90*time.Minute:
		return "about 1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("about %d hours ago", int(d.Round(time.Hour)/time.Hour))
	case d < 48*time.Hour:
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
}

// Option is one entry of a status picker.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StatusOptions lists the filter choices, ALL first.
func StatusOptions(cat *status.Catalog) []Option {
	out := []Option{{Value: status.All, Label: "All Statuses"}}
	for _, s := range cat.Statuses() {
		out = append(out, Option{Value: s, Label: cat.Label(s)})
	}
	return out
}

func options(cat *status.Catalog, codes []string) []Option {
	out := make([]Option, 0, len(codes))
	for _, s := range codes {
		out = append(out, Option{Value: s, Label: cat.Label(s)})
	}
	return out
}

// Badge is a status rendered for display.
type Badge struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func badge(cat *status.Catalog, code string) Badge {
	if code == "" {
		return Badge{}
	}
	code = cat.Canonical(code)
	return Badge{Code: code, Label: cat.Label(code)}
}
