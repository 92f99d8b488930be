package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

// NotificationService covers a user's inbox. Every operation is scoped to
// the calling user; a notification ID belonging to someone else behaves
// exactly like one that does not exist.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewNotificationService(notifications repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// Inbox is one page of a user's notifications.
type Inbox struct {
	Notifications []model.Notification
	Total         int
	Page          int
	Unread        int
}

// List returns one page of the user's inbox, newest first, with the
// total match count and current unread count for badge rendering.
func (s *NotificationService) List(ctx context.Context, userID string, page, limit int, unreadOnly bool) (*Inbox, error) {
	if page < 1 {
		page = 1
	}

	rows, total, err := s.notifications.ListForUser(ctx, userID, repository.Page{
		Number:     page,
		Size:       limit,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing inbox: %w", err)
	}

	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/notification: counting unread: %w", err)
	}

	return &Inbox{
		Notifications: rows,
		Total:         total,
		Page:          page,
		Unread:        unread,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service/notification: counting unread: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.notifications.DeleteNotification(ctx, id, userID)
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID string) error {
	return s.notifications.DeleteAllForUser(ctx, userID)
}
