package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/events"
)

// NotificationService surfaces user-facing messages for lifecycle events.
// The UI layer renders these as transient toasts; here they flow through
// the logger.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventSessionExpired, n.handleSessionExpired)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("Account created successfully! Redirecting to dashboard...",
		zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) handleSessionExpired(ctx context.Context, event events.Event) error {
	n.logger.Info("Session expired. Please sign in again.",
		zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("Ticket created successfully!", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("Ticket updated successfully!", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("Ticket deleted successfully!", zap.Any("payload", event.Payload))
	return nil
}
