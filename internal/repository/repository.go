// Package repository defines the storage interfaces the service layer
// depends on. The sqlite subpackage provides the concrete implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/neristhub/campushub/internal/model"
)

// ListingFilter narrows a listing query. Kind is required; everything else
// is optional. Payload filters reference fields inside the kind-specific
// payload document:
//   - Equals: exact match (category, serviceType, ...)
//   - Matches: case-insensitive substring (branch, subject, ...)
//   - Ints: numeric equality (year, semester)
type ListingFilter struct {
	Kind    model.Kind
	Status  string
	Equals  map[string]string
	Matches map[string]string
	Ints    map[string]int
}

// Page selects a slice of a user's notification inbox.
type Page struct {
	Number     int // 1-based
	Size       int
	UnreadOnly bool
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByRegistration(ctx context.Context, registration string) (*model.User, error)
	// GetByResetToken only matches a token whose expiry is still in the future.
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	// UpdatePassword sets a new password hash and clears any reset token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ListIDs returns the IDs of every user, for broadcast fan-out.
	ListIDs(ctx context.Context) ([]string, error)
}

type ListingRepository interface {
	CreateListing(ctx context.Context, listing *model.Listing) error
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
	// ListListings returns matching listings newest-first.
	ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error)
	UpdateListingStatus(ctx context.Context, id, status string) error
	DeleteListing(ctx context.Context, id string) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// CreateNotifications bulk-inserts rows in chunked multi-value
	// statements. Used for broadcasts, where one-at-a-time inserts would
	// not survive campus-scale user counts.
	CreateNotifications(ctx context.Context, ns []model.Notification) error
	// ListForUser returns one page newest-first plus the total match count.
	ListForUser(ctx context.Context, userID string, page Page) ([]model.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkRead and DeleteNotification are scoped to userID: a row belonging
	// to another user behaves as if it does not exist.
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id, userID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
