// Package orders runs user actions against the backend and invalidates the
// cached reads each action affects. Local state is never updated ahead of
// the server's answer.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"orderdesk/internal/model"
	"orderdesk/internal/query"
	"orderdesk/internal/status"
	"orderdesk/internal/validation"
)

var (
	ErrNoChange             = errors.New("order already has this status")
	ErrTransitionNotAllowed = errors.New("status change not allowed for your role")
	ErrNotConfirmed         = errors.New("status change not confirmed")
	ErrEvidenceNotAccepted  = errors.New("this status does not take a screenshot")
	ErrNotAdmin             = errors.New("admin role required")
	ErrEmptyComment         = errors.New("comment is empty")
	ErrEmptySheetName       = errors.New("sheet name is empty")
)

type Backend interface {
	UpdateStatus(ctx context.Context, id, to string, evidence *validation.File) (model.Order, error)
	CreateOrder(ctx context.Context, form validation.CreateOrderForm) (model.Order, error)
	AddComment(ctx context.Context, id, text string) error
	DeleteOrder(ctx context.Context, id string) error
	CreateSheet(ctx context.Context, name string) (model.Sheet, error)
	DeleteSheet(ctx context.Context, id string) error
}

type Invalidator interface {
	Invalidate(resource string)
	Forget(resource string)
}

type Service struct {
	backend  Backend
	catalog  *status.Catalog
	cache    Invalidator
	validate *validatorv10.Validate
}

func NewService(backend Backend, catalog *status.Catalog, cache Invalidator) *Service {
	return &Service{
		backend:  backend,
		catalog:  catalog,
		cache:    cache,
		validate: validation.New(),
	}
}

// Summary describes a pending status change for the confirmation step.
type Summary struct {
	OrderID   string `json:"orderId"`
	OrderName string `json:"orderName"`
	From      string `json:"from"`
	To        string `json:"to"`
	FromLabel string `json:"fromLabel"`
	ToLabel   string `json:"toLabel"`
	Evidence  bool   `json:"evidence"`
}

type Confirmer interface {
	Confirm(ctx context.Context, s Summary) bool
}

type ConfirmFunc func(ctx context.Context, s Summary) bool

func (f ConfirmFunc) Confirm(ctx context.Context, s Summary) bool {
	return f(ctx, s)
}

func (s *Service) Summarize(order model.Order, to string) Summary {
	to = s.catalog.Canonical(to)
	from := s.catalog.Canonical(order.Status)
	return Summary{
		OrderID:   order.ID,
		OrderName: order.OrderName,
		From:      from,
		To:        to,
		FromLabel: s.catalog.Label(from),
		ToLabel:   s.catalog.Label(to),
		Evidence:  s.catalog.AcceptsEvidence(to),
	}
}

// RequestTransition moves order to the requested status once the actor's
// role allows it and confirm agrees. On any failure the returned order is
// the one passed in.
func (s *Service) RequestTransition(ctx context.Context, order model.Order, to string, actor model.User, evidence *validation.File, confirm Confirmer) (model.Order, error) {
	target, ok := s.catalog.Normalize(to)
	if !ok {
		return order, fmt.Errorf("%w: %q", status.ErrUnknownStatus, to)
	}
	if target == s.catalog.Canonical(order.Status) {
		return order, ErrNoChange
	}
	if !s.catalog.CanTransition(actor.Role, order.Status, target) {
		return order, ErrTransitionNotAllowed
	}
	if evidence != nil && !s.catalog.AcceptsEvidence(target) {
		return order, ErrEvidenceNotAccepted
	}
	if confirm == nil || !confirm.Confirm(ctx, s.Summarize(order, target)) {
		return order, ErrNotConfirmed
	}

	updated, err := s.backend.UpdateStatus(ctx, order.ID, target, evidence)
	if err != nil {
		slog.Warn("status update failed", "order", order.ID, "to", target, "error", err)
		return order, err
	}

	// terse acknowledgements carry only id and status
	if updated.OrderName == "" {
		merged := order
		merged.Status = s.catalog.Canonical(updated.Status)
		if merged.Status == "" {
			merged.Status = target
		}
		updated = merged
	}

	slog.Info("order status changed", "order", order.ID, "from", order.Status, "to", updated.Status, "by", actor.Username)
	s.invalidate(query.Orders, query.Order(order.ID), query.OverallOrders, query.AlertHistory)
	return updated, nil
}

// Create validates the form locally before anything is sent.
func (s *Service) Create(ctx context.Context, form validation.CreateOrderForm) (model.Order, error) {
	if err := s.validate.Struct(form); err != nil {
		return model.Order{}, err
	}
	order, err := s.backend.CreateOrder(ctx, form)
	if err != nil {
		return model.Order{}, err
	}
	slog.Info("order created", "order", order.ID, "name", form.OrderName)
	s.invalidate(query.Orders, query.OverallOrders, query.AlertHistory)
	return order, nil
}

func (s *Service) AddComment(ctx context.Context, orderID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyComment
	}
	if err := s.backend.AddComment(ctx, orderID, text); err != nil {
		return err
	}
	s.invalidate(query.Order(orderID))
	return nil
}

func (s *Service) Delete(ctx context.Context, orderID string, actor model.User) error {
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}
	if err := s.backend.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	slog.Info("order deleted", "order", orderID, "by", actor.Username)
	s.cache.Forget(query.Order(orderID))
	s.invalidate(query.Orders, query.OverallOrders, query.AlertHistory)
	return nil
}

func (s *Service) CreateSheet(ctx context.Context, name string, actor model.User) (model.Sheet, error) {
	if !actor.IsAdmin() {
		return model.Sheet{}, ErrNotAdmin
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Sheet{}, ErrEmptySheetName
	}
	sheet, err := s.backend.CreateSheet(ctx, name)
	if err != nil {
		return model.Sheet{}, err
	}
	s.invalidate(query.Sheets)
	return sheet, nil
}

func (s *Service) DeleteSheet(ctx context.Context, id string, actor model.User) error {
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}
	if err := s.backend.DeleteSheet(ctx, id); err != nil {
		return err
	}
	s.invalidate(query.Sheets)
	return nil
}

func (s *Service) invalidate(resources ...string) {
	for _, r := range resources {
		s.cache.Invalidate(r)
	}
}
