package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// NotificationService reads a user's notifications. Notifications are
// written by the triggers only.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// List returns userID's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	items, err := s.notifications.ListNotifications(ctx, userID, clampList(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing notifications: %w", err)
	}
	return items, nil
}

// MarkRead marks one of userID's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "notification ID is required")
	}
	return s.notifications.MarkNotificationRead(ctx, userID, id)
}
