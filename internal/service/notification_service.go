package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/booking-system/user-service/internal/config"
	"github.com/booking-system/user-service/internal/events"
	"github.com/booking-system/user-service/internal/repository"
)

// NotificationService delivers notification.requested events. Delivery is a
// logging stub until a mail gateway exists.
type NotificationService struct {
	users  repository.UserStore
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(users repository.UserStore, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		users:  users,
		logger: logger,
		cfg:    cfg,
	}
}

// HandleNotificationRequested decodes a notification.requested message and
// delivers it on its channel.
func (n *NotificationService) HandleNotificationRequested(ctx context.Context, msg events.Message) error {
	event, err := events.Decode(msg.Value)
	if err != nil {
		return err
	}
	req, ok := event.Payload.(events.NotificationRequested)
	if !ok {
		return fmt.Errorf("unexpected payload %T on %s", event.Payload, msg.Topic)
	}

	switch req.NotificationType {
	case events.NotificationEmail:
		return n.sendEmailNotificationStub(ctx, req)
	default:
		n.logger.Debug("notification channel not handled in process",
			zap.String("user_id", req.UserID),
			zap.String("channel", string(req.NotificationType)))
		return nil
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, req events.NotificationRequested) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return nil
	}
	user, err := n.users.FindByID(ctx, req.UserID)
	if err != nil {
		// the user may have been deleted since the request was queued
		return fmt.Errorf("resolve recipient %s: %w", req.UserID, err)
	}
	n.logger.Info("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", user.Email),
		zap.String("user_id", req.UserID),
		zap.String("subject", req.Subject),
		zap.String("triggered_by", string(req.TriggeredBy)))
	return nil
}
