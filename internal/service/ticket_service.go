package service

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/store"
	"github.com/spec-kit/ticketapp/internal/validation"
	"github.com/spec-kit/ticketapp/pkg/util"
)

// maxDescriptionLength bounds the optional ticket description, in characters.
const maxDescriptionLength = 500

// TicketService owns per-user ticket CRUD and validation. The underlying
// collection holds tickets for all users together; every mutation rewrites
// the whole collection back to its slot.
type TicketService struct {
	store      store.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// TicketForm carries the create/edit form fields.
type TicketForm struct {
	Title       string
	Description string
	Status      domain.TicketStatus
	Priority    domain.TicketPriority
}

// TicketStats aggregates the dashboard counters for one user. Resolved
// counts closed tickets.
type TicketStats struct {
	Total    int
	Open     int
	Resolved int
}

// List returns the tickets owned by userID in storage order. It re-reads
// the slot on every call, so external changes are reflected.
func (s *TicketService) List(userID string) []domain.Ticket {
	var scoped []domain.Ticket
	for _, t := range s.loadTickets() {
		if t.UserID == userID {
			scoped = append(scoped, t)
		}
	}
	return scoped
}

// Validate checks the form fields, accumulating every applicable error.
// Priority is not independently validated; the input control constrains it.
func (s *TicketService) Validate(form TicketForm) validation.FieldErrors {
	errs := validation.FieldErrors{}
	if validation.Blank(form.Title) {
		errs["title"] = "Title is required."
	}
	if form.Status == "" {
		errs["status"] = "Status is required."
	} else if !form.Status.Valid() {
		errs["status"] = "Status must be 'open', 'in_progress', or 'closed'."
	}
	if utf8.RuneCountInString(form.Description) > maxDescriptionLength {
		errs["description"] = "Description must be less than 500 characters."
	}
	return errs
}

// Create appends a new ticket for userID to the full collection and
// persists it. Priority defaults to medium when the form leaves it empty.
func (s *TicketService) Create(userID string, form TicketForm) (*domain.Ticket, error) {
	if errs := s.Validate(form); !errs.Empty() {
		s.metrics.RecordError("tickets", "create", util.CodeValidationFailed)
		return nil, util.NewValidationError(errs)
	}

	now := time.Now().UTC()
	ticket := domain.Ticket{
		ID:          domain.NewID(),
		UserID:      userID,
		Title:       form.Title,
		Description: form.Description,
		Status:      form.Status,
		Priority:    form.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	all := append(s.loadTickets(), ticket)
	if err := s.saveTickets(all); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("user_id", userID))
	s.metrics.RecordOperation("tickets", "create")
	s.publish(events.Event{
		Type:   events.EventTicketCreated,
		UserID: userID,
		Payload: events.TicketCreatedPayload{
			TicketID: ticket.ID,
			Title:    ticket.Title,
			Status:   ticket.Status,
			Priority: ticket.Priority,
		},
	})
	return &ticket, nil
}

// Update replaces the editable fields of the matching ticket in place and
// bumps UpdatedAt. Other tickets are untouched. Ownership is not checked
// here; callers only ever pass ids obtained from a scoped List.
func (s *TicketService) Update(ticketID string, form TicketForm) (*domain.Ticket, error) {
	if errs := s.Validate(form); !errs.Empty() {
		s.metrics.RecordError("tickets", "update", util.CodeValidationFailed)
		return nil, util.NewValidationError(errs)
	}

	all := s.loadTickets()
	var updated *domain.Ticket
	for i := range all {
		if all[i].ID != ticketID {
			continue
		}
		all[i].Title = form.Title
		all[i].Description = form.Description
		all[i].Status = form.Status
		all[i].Priority = form.Priority
		all[i].UpdatedAt = time.Now().UTC()
		updated = &all[i]
		break
	}
	if updated == nil {
		s.metrics.RecordError("tickets", "update", util.CodeNotFound)
		return nil, util.NewNotFound("ticket")
	}

	if err := s.saveTickets(all); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.logger.Info("ticket updated", zap.String("ticket_id", updated.ID))
	s.metrics.RecordOperation("tickets", "update")
	s.publish(events.Event{
		Type:   events.EventTicketUpdated,
		UserID: updated.UserID,
		Payload: events.TicketUpdatedPayload{
			TicketID: updated.ID,
			Status:   updated.Status,
			Priority: updated.Priority,
		},
	})
	result := *updated
	return &result, nil
}

// Delete removes the matching ticket from the full collection. Deleting an
// absent id is a no-op; the collection is rewritten either way.
func (s *TicketService) Delete(ticketID string) error {
	all := s.loadTickets()
	remaining := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if t.ID != ticketID {
			remaining = append(remaining, t)
		}
	}

	if err := s.saveTickets(remaining); err != nil {
		return util.NewInternalError(err)
	}

	if len(remaining) < len(all) {
		s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID))
		s.metrics.RecordOperation("tickets", "delete")
		s.publish(events.Event{
			Type:    events.EventTicketDeleted,
			Payload: events.TicketDeletedPayload{TicketID: ticketID},
		})
	}
	return nil
}

// Stats derives the dashboard counters from the user's scoped tickets.
func (s *TicketService) Stats(userID string) TicketStats {
	stats := TicketStats{}
	for _, t := range s.List(userID) {
		stats.Total++
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClosed:
			stats.Resolved++
		}
	}
	return stats
}

func (s *TicketService) loadTickets() []domain.Ticket {
	raw, ok, err := s.store.Get(store.SlotTickets)
	if err != nil {
		s.logger.Error("reading tickets slot", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		s.logger.Warn("tickets slot corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return tickets
}

func (s *TicketService) saveTickets(tickets []domain.Ticket) error {
	encoded, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	return s.store.Set(store.SlotTickets, string(encoded))
}

func (s *TicketService) publish(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = domain.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}
