package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type notificationReaderStub struct {
	items     []models.Notification
	lastLimit int
}

func (n *notificationReaderStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	n.lastLimit = limit
	var out []models.Notification
	for _, item := range n.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (n *notificationReaderStub) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	for i := range n.items {
		if n.items[i].ID == id && n.items[i].UserID == userID {
			n.items[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func TestNotificationServiceList(t *testing.T) {
	repo := &notificationReaderStub{items: []models.Notification{{ID: "n1", UserID: student.UserID}, {ID: "n2", UserID: "other"}}}
	svc := NewNotificationService(repo)

	items, err := svc.List(context.Background(), student.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, defaultNotificationLimit, repo.lastLimit)

	items, err = svc.List(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestNotificationServiceMarkReadOwnership(t *testing.T) {
	repo := &notificationReaderStub{items: []models.Notification{{ID: "n1", UserID: student.UserID}}}
	svc := NewNotificationService(repo)

	err := svc.MarkRead(context.Background(), "intruder", "n1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.False(t, repo.items[0].Read)

	require.NoError(t, svc.MarkRead(context.Background(), student.UserID, "n1"))
	assert.True(t, repo.items[0].Read)
}
