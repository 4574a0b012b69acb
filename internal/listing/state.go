package listing

import (
	"errors"
	"slices"

	"orderdesk/internal/status"
)

var PageSizes = []int{5, 10, 25, 50}

const (
	DefaultOrdersPerPage = 10
	DefaultAlertsPerPage = 25
)

var ErrPageSize = errors.New("unsupported page size")

// State is the page/filter position of one listing view. Any change to the
// filter or page size sends the view back to page 1.
type State struct {
	Page    int
	PerPage int
	Search  string
	Status  string
	OrderID string
}

func NewState(perPage int) State {
	return State{Page: 1, PerPage: perPage, Status: status.All}
}

func (s *State) SetSearch(text string) {
	s.Search = text
	s.Page = 1
}

// SetStatus sets the status filter; empty means ALL.
func (s *State) SetStatus(code string) {
	if code == "" {
		code = status.All
	}
	s.Status = code
	s.Page = 1
}

func (s *State) SetOrderID(id string) {
	s.OrderID = id
	s.Page = 1
}

func (s *State) SetPerPage(n int) error {
	if !slices.Contains(PageSizes, n) {
		return ErrPageSize
	}
	s.PerPage = n
	s.Page = 1
	return nil
}

func (s *State) GoTo(page int) {
	if page < 1 {
		page = 1
	}
	s.Page = page
}

// StatusFilter is the status to send to the backend, empty for ALL.
func (s State) StatusFilter() string {
	if s.Status == status.All {
		return ""
	}
	return s.Status
}
