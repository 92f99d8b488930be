package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

// Notifier is the slice of the fan-out engine the listing service needs.
// Both methods are fire-and-forget: delivery problems are the notifier's
// to log, never this service's to propagate.
type Notifier interface {
	Broadcast(ctx context.Context, n model.Notification)
	Notify(ctx context.Context, n model.Notification)
}

// ListingService implements the shared behavior of all five community
// resource kinds: create with broadcast, filtered listing, the owner-only
// status transition, and owner-only delete.
type ListingService struct {
	listings repository.ListingRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewListingService(listings repository.ListingRepository, notifier Notifier, logger *slog.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		notifier: notifier,
		logger:   logger,
	}
}

// Create validates the kind-specific payload, stores the listing with the
// caller's name and registration frozen into it, and then broadcasts the
// event to everyone else. The broadcast runs only after the insert has
// succeeded, so no notification can ever reference a listing that was
// never stored.
//
// initialStatus overrides the kind's default starting status; the only
// supported override is reporting a lost-item directly as "found".
func (s *ListingService) Create(
	ctx context.Context,
	owner model.Identity,
	kind model.Kind,
	payload json.RawMessage,
	attachment string,
	initialStatus string,
) (*model.Listing, error) {
	spec, ok := model.SpecFor(kind)
	if !ok {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown listing kind %q", kind))
	}

	label, err := validatePayload(kind, payload, attachment)
	if err != nil {
		return nil, err
	}

	status := spec.InitialStatus
	broadcastType := spec.BroadcastType
	if initialStatus != "" {
		if kind != model.KindLostItem || initialStatus != "found" {
			return nil, apperror.ValidationFailed("status",
				fmt.Sprintf("status %q is not valid for a new %s", initialStatus, kind))
		}
		status = "found"
		broadcastType = model.NotificationFound
	}

	listing := &model.Listing{
		Kind:              kind,
		Status:            status,
		OwnerID:           owner.ID,
		OwnerName:         owner.Name,
		OwnerRegistration: owner.RegistrationNumber,
		Attachment:        attachment,
		Payload:           payload,
	}
	if err := s.listings.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("service/listing: creating %s: %w", kind, err)
	}

	s.logger.Info("listing created", "kind", kind, "id", listing.ID, "owner", owner.RegistrationNumber)

	if title, message, ok := broadcastText(kind, broadcastType, owner.Name, label, payload); ok {
		s.notifier.Broadcast(ctx, model.Notification{
			Type:     broadcastType,
			Title:    title,
			Message:  message,
			ItemID:   listing.ID,
			ItemKind: kind,
		})
	}

	return listing, nil
}

// List returns listings of one kind, newest first, narrowed by whatever
// recognized query parameters are present. Unknown parameters are ignored
// rather than rejected, the same forgiving contract the API has always
// had.
func (s *ListingService) List(ctx context.Context, kind model.Kind, params map[string]string) ([]model.Listing, error) {
	if _, ok := model.SpecFor(kind); !ok {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown listing kind %q", kind))
	}

	filter := repository.ListingFilter{
		Kind:    kind,
		Equals:  map[string]string{},
		Matches: map[string]string{},
		Ints:    map[string]int{},
	}

	// Per-kind filter whitelist. Keys on the left are query parameters;
	// what they bind to depends on the kind.
	switch kind {
	case model.KindLostItem:
		filter.Status = params["status"]
	case model.KindMarketplace, model.KindBuyRequest:
		filter.Status = params["status"]
		if v := params["category"]; v != "" {
			filter.Equals["category"] = v
		}
	case model.KindRental:
		// The rental form calls the lifecycle field "availability".
		filter.Status = params["availability"]
		if v := params["serviceType"]; v != "" {
			filter.Equals["serviceType"] = v
		}
	case model.KindQuestionPaper:
		if year, err := strconv.Atoi(params["year"]); err == nil {
			filter.Ints["year"] = year
		}
		if sem, err := strconv.Atoi(params["semester"]); err == nil {
			filter.Ints["semester"] = sem
		}
		for _, key := range []string{"branch", "subject", "subjectCode"} {
			if v := params[key]; v != "" {
				filter.Matches[key] = v
			}
		}
	}

	listings, err := s.listings.ListListings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/listing: listing %s: %w", kind, err)
	}
	return listings, nil
}

// Get returns one listing, checking it belongs to the expected kind so an
// ID from one resource group cannot be fetched through another group's
// routes.
func (s *ListingService) Get(ctx context.Context, kind model.Kind, id string) (*model.Listing, error) {
	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Kind != kind {
		return nil, apperror.NotFound(string(kind), id)
	}
	return listing, nil
}

// Transition moves a listing along its one-way lifecycle (lost to found,
// available to sold, and so on) and notifies the owner.
//
// Order of checks matters: a missing listing is NotFound, an existing
// listing someone else owns is Forbidden. The outcomes stay distinct so a
// caller can tell a stale ID from a permissions mistake.
func (s *ListingService) Transition(ctx context.Context, actor model.Identity, kind model.Kind, id string) error {
	spec, ok := model.SpecFor(kind)
	if !ok || !spec.HasStatus() {
		return apperror.ValidationFailed("kind", fmt.Sprintf("%s listings have no status to change", kind))
	}

	listing, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID {
		return apperror.Forbidden(fmt.Sprintf("you can only mark your own %s as %s", kindNoun(kind), spec.TransitionTo))
	}

	if err := s.listings.UpdateListingStatus(ctx, id, spec.TransitionTo); err != nil {
		return fmt.Errorf("service/listing: updating %s %s: %w", kind, id, err)
	}

	s.logger.Info("listing transitioned", "kind", kind, "id", id, "status", spec.TransitionTo)

	title, message := transitionText(kind, payloadLabel(kind, listing.Payload))
	s.notifier.Notify(ctx, model.Notification{
		UserID:   listing.OwnerID,
		Type:     spec.TransitionType,
		Title:    title,
		Message:  message,
		ItemID:   listing.ID,
		ItemKind: kind,
	})

	return nil
}

// Delete removes a listing. Same check order as Transition: NotFound for
// a missing or wrong-kind ID, Forbidden for someone else's listing.
func (s *ListingService) Delete(ctx context.Context, actor model.Identity, kind model.Kind, id string) error {
	listing, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID {
		return apperror.Forbidden(fmt.Sprintf("you can only delete your own %s", kindNoun(kind)))
	}

	if err := s.listings.DeleteListing(ctx, id); err != nil {
		return fmt.Errorf("service/listing: deleting %s %s: %w", kind, id, err)
	}

	s.logger.Info("listing deleted", "kind", kind, "id", id)
	return nil
}

// validatePayload checks the kind-specific required fields and returns
// the human label used in notification text (the item's title, the buy
// request's item name, the rental's service type).
func validatePayload(kind model.Kind, payload json.RawMessage, attachment string) (string, error) {
	switch kind {
	case model.KindLostItem:
		var p model.LostItemPayload
		if err := decodePayload(payload, &p); err != nil {
			return "", err
		}
		if p.Title == "" {
			return "", apperror.ValidationFailed("title", "title is required")
		}
		return p.Title, nil

	case model.KindMarketplace:
		var p model.MarketplacePayload
		if err := decodePayload(payload, &p); err != nil {
			return "", err
		}
		if p.Title == "" {
			return "", apperror.ValidationFailed("title", "title is required")
		}
		if p.Price < 0 {
			return "", apperror.ValidationFailed("price", "price cannot be negative")
		}
		return p.Title, nil

	case model.KindBuyRequest:
		var p model.BuyRequestPayload
		if err := decodePayload(payload, &p); err != nil {
			return "", err
		}
		if p.ItemName == "" {
			return "", apperror.ValidationFailed("itemName", "item name is required")
		}
		return p.ItemName, nil

	case model.KindRental:
		var p model.RentalPayload
		if err := decodePayload(payload, &p); err != nil {
			return "", err
		}
		if p.ServiceType == "" {
			return "", apperror.ValidationFailed("serviceType", "service type is required")
		}
		if p.Title != "" {
			return p.Title, nil
		}
		return p.ServiceType, nil

	case model.KindQuestionPaper:
		var p model.QuestionPaperPayload
		if err := decodePayload(payload, &p); err != nil {
			return "", err
		}
		if p.Year == 0 || p.Semester == 0 || p.Branch == "" || p.Subject == "" {
			return "", apperror.ValidationFailed("paper", "year, semester, branch, and subject are required")
		}
		if attachment == "" {
			return "", apperror.ValidationFailed("pdf", "a PDF file is required")
		}
		return p.Subject, nil
	}

	return "", apperror.ValidationFailed("kind", fmt.Sprintf("unknown listing kind %q", kind))
}

func decodePayload(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return apperror.ValidationFailed("payload", "request body is required")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperror.ValidationFailed("payload", "malformed request body")
	}
	return nil
}

// payloadLabel extracts the same human label as validatePayload, for
// listings already in the database. Malformed stored payloads degrade to
// an empty label instead of failing the operation.
func payloadLabel(kind model.Kind, payload json.RawMessage) string {
	label, err := validatePayload(kind, payload, "stored")
	if err != nil {
		return ""
	}
	return label
}

// broadcastText composes the campus-wide announcement for a new listing.
// Question papers are deliberately silent; everything else announces.
func broadcastText(kind model.Kind, typ model.NotificationType, ownerName, label string, payload json.RawMessage) (title, message string, ok bool) {
	switch kind {
	case model.KindLostItem:
		if typ == model.NotificationFound {
			return "New Found Item", fmt.Sprintf("%s found: %s", ownerName, label), true
		}
		return "New Lost Item Reported", fmt.Sprintf("%s lost: %s", ownerName, label), true
	case model.KindMarketplace:
		var p model.MarketplacePayload
		_ = json.Unmarshal(payload, &p)
		return "New Item for Sale", fmt.Sprintf("%s is selling: %s for ₹%g", ownerName, label, p.Price), true
	case model.KindBuyRequest:
		return "New Buy Request", fmt.Sprintf("%s wants to buy: %s", ownerName, label), true
	case model.KindRental:
		return "New Rental Service", fmt.Sprintf("%s posted: %s rental", ownerName, label), true
	}
	return "", "", false
}

// transitionText composes the owner-only note sent when a listing leaves
// its initial status.
func transitionText(kind model.Kind, label string) (title, message string) {
	switch kind {
	case model.KindLostItem:
		return "Item Marked as Found", fmt.Sprintf("Your item %q has been marked as found", label)
	case model.KindMarketplace:
		return "Item Sold", fmt.Sprintf("Your item %q has been marked as sold", label)
	case model.KindBuyRequest:
		return "Buy Request Fulfilled", fmt.Sprintf("Your request to buy %q has been marked as fulfilled", label)
	case model.KindRental:
		return "Rental Service Rented", fmt.Sprintf("Your rental %q has been marked as rented", label)
	}
	return "", ""
}

// kindNoun is the word used in permission errors ("your own items",
// "your own requests").
func kindNoun(kind model.Kind) string {
	switch kind {
	case model.KindBuyRequest:
		return "requests"
	case model.KindRental:
		return "rentals"
	case model.KindQuestionPaper:
		return "papers"
	default:
		return "items"
	}
}
