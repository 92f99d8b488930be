package notify

import (
	"context"
	"log/slog"

	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

// Fanout writes notifications and pushes them to live streams. All its
// methods are best-effort: the caller's own operation has already
// succeeded by the time fan-out runs, so failures here are logged and
// swallowed rather than surfaced to the client.
type Fanout struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	hub           *Hub
	logger        *slog.Logger
}

func NewFanout(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	hub *Hub,
	logger *slog.Logger,
) *Fanout {
	return &Fanout{
		notifications: notifications,
		users:         users,
		hub:           hub,
		logger:        logger,
	}
}

// Broadcast delivers one notification to every registered user, the
// triggering poster included: they see their own post announced too.
func (f *Fanout) Broadcast(ctx context.Context, n model.Notification) {
	ids, err := f.users.ListIDs(ctx)
	if err != nil {
		f.logger.Error("broadcast: listing users", "error", err, "type", n.Type)
		return
	}

	rows := make([]model.Notification, 0, len(ids))
	for _, id := range ids {
		row := n
		row.UserID = id
		rows = append(rows, row)
	}

	if err := f.notifications.CreateNotifications(ctx, rows); err != nil {
		f.logger.Error("broadcast: inserting notifications", "error", err,
			"type", n.Type, "recipients", len(rows))
		return
	}

	for i := range rows {
		f.hub.Push(rows[i].UserID, &rows[i])
	}

	f.logger.Debug("broadcast delivered", "type", n.Type, "recipients", len(rows))
}

// Notify delivers one notification to a single user.
func (f *Fanout) Notify(ctx context.Context, n model.Notification) {
	if err := f.notifications.CreateNotification(ctx, &n); err != nil {
		f.logger.Error("notify: inserting notification", "error", err,
			"type", n.Type, "user_id", n.UserID)
		return
	}
	f.hub.Push(n.UserID, &n)
}
