package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

type mockListingRepo struct {
	listings map[string]*model.Listing
	nextID   int
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: make(map[string]*model.Listing)}
}

func (m *mockListingRepo) CreateListing(_ context.Context, listing *model.Listing) error {
	m.nextID++
	listing.ID = fmt.Sprintf("listing-%d", m.nextID)
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = listing.CreatedAt
	stored := *listing
	m.listings[listing.ID] = &stored
	return nil
}

func (m *mockListingRepo) GetListingByID(_ context.Context, id string) (*model.Listing, error) {
	listing, ok := m.listings[id]
	if !ok {
		return nil, apperror.NotFound("listing", id)
	}
	result := *listing
	return &result, nil
}

func (m *mockListingRepo) ListListings(_ context.Context, filter repository.ListingFilter) ([]model.Listing, error) {
	result := []model.Listing{}
	for _, l := range m.listings {
		if l.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		var payload map[string]any
		_ = json.Unmarshal(l.Payload, &payload)
		match := true
		for key, want := range filter.Equals {
			if got, _ := payload[key].(string); got != want {
				match = false
			}
		}
		for key, want := range filter.Matches {
			got, _ := payload[key].(string)
			if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				match = false
			}
		}
		for key, want := range filter.Ints {
			if got, _ := payload[key].(float64); int(got) != want {
				match = false
			}
		}
		if match {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockListingRepo) UpdateListingStatus(_ context.Context, id, status string) error {
	listing, ok := m.listings[id]
	if !ok {
		return apperror.NotFound("listing", id)
	}
	listing.Status = status
	return nil
}

func (m *mockListingRepo) DeleteListing(_ context.Context, id string) error {
	if _, ok := m.listings[id]; !ok {
		return apperror.NotFound("listing", id)
	}
	delete(m.listings, id)
	return nil
}

// mockNotifier records what the service asked it to deliver.
type mockNotifier struct {
	broadcasts []model.Notification
	notifies   []model.Notification
}

func (m *mockNotifier) Broadcast(_ context.Context, n model.Notification) {
	m.broadcasts = append(m.broadcasts, n)
}

func (m *mockNotifier) Notify(_ context.Context, n model.Notification) {
	m.notifies = append(m.notifies, n)
}

var testOwner = model.Identity{ID: "user-1", Name: "Asha", RegistrationNumber: "225/88"}
var otherUser = model.Identity{ID: "user-2", Name: "Bikram", RegistrationNumber: "225/89"}

func newListingService() (*ListingService, *mockListingRepo, *mockNotifier) {
	repo := newMockListingRepo()
	notifier := &mockNotifier{}
	svc := NewListingService(repo, notifier, slog.New(slog.DiscardHandler))
	return svc, repo, notifier
}

func TestCreate_LostItem(t *testing.T) {
	svc, _, notifier := newListingService()

	listing, err := svc.Create(context.Background(), testOwner, model.KindLostItem,
		json.RawMessage(`{"title":"Blue umbrella","location":"Library"}`), "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if listing.Status != "lost" {
		t.Errorf("Status = %q, want lost", listing.Status)
	}
	if listing.OwnerName != "Asha" || listing.OwnerRegistration != "225/88" {
		t.Errorf("owner attribution = %q/%q", listing.OwnerName, listing.OwnerRegistration)
	}

	if len(notifier.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(notifier.broadcasts))
	}
	b := notifier.broadcasts[0]
	if b.Type != model.NotificationLost {
		t.Errorf("broadcast type = %s, want lost", b.Type)
	}
	if b.Message != "Asha lost: Blue umbrella" {
		t.Errorf("broadcast message = %q", b.Message)
	}
	if b.ItemID != listing.ID || b.ItemKind != model.KindLostItem {
		t.Errorf("broadcast links to %s/%s, want %s", b.ItemKind, b.ItemID, listing.ID)
	}
}

func TestCreate_FoundItemDirectly(t *testing.T) {
	svc, _, notifier := newListingService()

	listing, err := svc.Create(context.Background(), testOwner, model.KindLostItem,
		json.RawMessage(`{"title":"ID card"}`), "", "found")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if listing.Status != "found" {
		t.Errorf("Status = %q, want found", listing.Status)
	}
	if notifier.broadcasts[0].Type != model.NotificationFound {
		t.Errorf("broadcast type = %s, want found", notifier.broadcasts[0].Type)
	}
	if notifier.broadcasts[0].Message != "Asha found: ID card" {
		t.Errorf("broadcast message = %q", notifier.broadcasts[0].Message)
	}
}

func TestCreate_StatusOverrideRejected(t *testing.T) {
	svc, _, _ := newListingService()

	// "found" only makes sense for lost-items.
	_, err := svc.Create(context.Background(), testOwner, model.KindMarketplace,
		json.RawMessage(`{"title":"Lamp","price":100}`), "", "sold")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreate_QuestionPaperSilent(t *testing.T) {
	svc, _, notifier := newListingService()

	_, err := svc.Create(context.Background(), testOwner, model.KindQuestionPaper,
		json.RawMessage(`{"year":2023,"semester":3,"branch":"CSE","subject":"Algorithms"}`),
		"algorithms.pdf", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(notifier.broadcasts) != 0 {
		t.Errorf("question paper upload broadcast %d notifications, want 0", len(notifier.broadcasts))
	}
}

func TestCreate_PayloadValidation(t *testing.T) {
	tests := []struct {
		name       string
		kind       model.Kind
		payload    string
		attachment string
	}{
		{"lost item without title", model.KindLostItem, `{"location":"hostel"}`, ""},
		{"marketplace without title", model.KindMarketplace, `{"price":100}`, ""},
		{"marketplace negative price", model.KindMarketplace, `{"title":"Lamp","price":-5}`, ""},
		{"buy request without item name", model.KindBuyRequest, `{"maxPrice":500}`, ""},
		{"rental without service type", model.KindRental, `{"title":"Scooter"}`, ""},
		{"paper without subject", model.KindQuestionPaper, `{"year":2023,"semester":3,"branch":"CSE"}`, "x.pdf"},
		{"paper without pdf", model.KindQuestionPaper, `{"year":2023,"semester":3,"branch":"CSE","subject":"Algo"}`, ""},
		{"malformed payload", model.KindLostItem, `{"title":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, notifier := newListingService()

			_, err := svc.Create(context.Background(), testOwner, tt.kind,
				json.RawMessage(tt.payload), tt.attachment, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
			if len(notifier.broadcasts) != 0 {
				t.Error("a rejected create still broadcast a notification")
			}
		})
	}
}

func TestList_FilterWhitelist(t *testing.T) {
	svc, _, _ := newListingService()

	mustCreate := func(kind model.Kind, payload, attachment string) {
		t.Helper()
		if _, err := svc.Create(context.Background(), testOwner, kind, json.RawMessage(payload), attachment, ""); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	mustCreate(model.KindMarketplace, `{"title":"Lamp","price":100,"category":"furniture"}`, "")
	mustCreate(model.KindMarketplace, `{"title":"Calculator","price":800,"category":"electronics"}`, "")
	mustCreate(model.KindQuestionPaper, `{"year":2023,"semester":3,"branch":"CSE","subject":"Algorithms"}`, "a.pdf")
	mustCreate(model.KindQuestionPaper, `{"year":2022,"semester":3,"branch":"CSE","subject":"Networks"}`, "n.pdf")

	got, err := svc.List(context.Background(), model.KindMarketplace, map[string]string{
		"category": "electronics",
		"bogus":    "ignored",
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List(marketplace, category=electronics) = %d listings, want 1", len(got))
	}

	papers, err := svc.List(context.Background(), model.KindQuestionPaper, map[string]string{
		"year":    "2023",
		"subject": "algo",
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("List(papers, year=2023, subject=algo) = %d listings, want 1", len(papers))
	}
}

func TestTransition(t *testing.T) {
	svc, repo, notifier := newListingService()

	listing, err := svc.Create(context.Background(), testOwner, model.KindMarketplace,
		json.RawMessage(`{"title":"Lamp","price":100}`), "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	notifier.broadcasts = nil

	if err := svc.Transition(context.Background(), testOwner, model.KindMarketplace, listing.ID); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	stored, _ := repo.GetListingByID(context.Background(), listing.ID)
	if stored.Status != "sold" {
		t.Errorf("Status = %q, want sold", stored.Status)
	}

	if len(notifier.notifies) != 1 {
		t.Fatalf("notifies = %d, want 1 owner notification", len(notifier.notifies))
	}
	n := notifier.notifies[0]
	if n.UserID != testOwner.ID {
		t.Errorf("notification for %q, want the owner", n.UserID)
	}
	if n.Message != `Your item "Lamp" has been marked as sold` {
		t.Errorf("notification message = %q", n.Message)
	}
	if len(notifier.broadcasts) != 0 {
		t.Error("transition must not broadcast campus-wide")
	}
}

func TestTransition_NotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newListingService()

	listing, err := svc.Create(context.Background(), testOwner, model.KindLostItem,
		json.RawMessage(`{"title":"Umbrella"}`), "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Missing ID: NotFound even though the caller owns nothing here.
	err = svc.Transition(context.Background(), otherUser, model.KindLostItem, "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Transition(missing) error = %v, want ErrNotFound", err)
	}

	// Existing listing, wrong caller: Forbidden.
	err = svc.Transition(context.Background(), otherUser, model.KindLostItem, listing.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Transition(other user) error = %v, want ErrForbidden", err)
	}

	// Existing listing reached through the wrong kind's route: NotFound.
	err = svc.Transition(context.Background(), testOwner, model.KindMarketplace, listing.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Transition(wrong kind) error = %v, want ErrNotFound", err)
	}
}

func TestTransition_PaperHasNoLifecycle(t *testing.T) {
	svc, _, _ := newListingService()

	err := svc.Transition(context.Background(), testOwner, model.KindQuestionPaper, "any")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Transition(question-paper) error = %v, want ErrValidation", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo, _ := newListingService()

	listing, err := svc.Create(context.Background(), testOwner, model.KindBuyRequest,
		json.RawMessage(`{"itemName":"Cycle"}`), "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), otherUser, model.KindBuyRequest, listing.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete(other user) error = %v, want ErrForbidden", err)
	}

	if err := svc.Delete(context.Background(), testOwner, model.KindBuyRequest, listing.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetListingByID(context.Background(), listing.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("listing still present after Delete()")
	}

	if err := svc.Delete(context.Background(), testOwner, model.KindBuyRequest, listing.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
