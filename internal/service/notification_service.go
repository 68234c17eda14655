package service

import (
	"context"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

const defaultNotificationLimit = 50

type notificationReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

// NotificationService exposes a user's notification inbox.
type NotificationService struct {
	repo notificationReader
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationReader) *NotificationService {
	return &NotificationService{repo: repo}
}

// List returns the newest notifications of the user.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	items, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags a notification owned by the user as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Internal(err, "failed to update notification")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}
