package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/events"
)

// NotificationService turns domain events into outbound notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig

	mu            sync.Mutex
	subscriptions []events.Unsubscribe
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscriptions = append(n.subscriptions,
		n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated),
		n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged),
		n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned),
		n.dispatcher.Subscribe(events.EventTicketResponded, n.handleTicketResponded),
		n.dispatcher.Subscribe(events.EventSLAMilestone, n.handleSLAMilestone),
	)
}

// Close removes every handler registered by RegisterHandlers.
func (n *NotificationService) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, unsubscribe := range n.subscriptions {
		unsubscribe()
	}
	n.subscriptions = nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketResponded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketResponded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSLAMilestone(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAMilestonePayload)
	if !ok || payload.Met {
		return nil
	}
	n.logger.Warn("SLA target missed",
		zap.String("ticket_id", event.TicketID),
		zap.String("milestone", string(payload.Milestone)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
