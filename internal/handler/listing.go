package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/service"
)

// ListingHandler serves the five community resource groups. The groups
// share one service; the handler's job is translating each group's form
// shape into a payload document.
type ListingHandler struct {
	listings *service.ListingService
	uploads  *uploadStore
	logger   *slog.Logger
}

func NewListingHandler(listings *service.ListingService, uploadDir string, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		uploads:  newUploadStore(uploadDir),
		logger:   logger,
	}
}

// CreateLostItem handles POST /api/items. The posting form may report the
// item as already found.
func (h *ListingHandler) CreateLostItem(w http.ResponseWriter, r *http.Request) {
	h.createLostOrFound(w, r, r.FormValue("status") == "found")
}

// CreateFoundItem handles POST /api/found-items: same shape, born found.
func (h *ListingHandler) CreateFoundItem(w http.ResponseWriter, r *http.Request) {
	h.createLostOrFound(w, r, true)
}

func (h *ListingHandler) createLostOrFound(w http.ResponseWriter, r *http.Request, found bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	attachment, err := h.uploads.saveImage(r, "image", "lost")
	if err != nil {
		writeError(w, err)
		return
	}

	payload := mustMarshal(model.LostItemPayload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Date:        r.FormValue("date"),
		Contact:     r.FormValue("contact"),
	})

	status := ""
	if found {
		status = "found"
	}

	listing, err := h.listings.Create(r.Context(), identity, model.KindLostItem, payload, attachment, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) CreateMarketplace(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	attachment, err := h.uploads.saveImage(r, "image", "marketplace")
	if err != nil {
		writeError(w, err)
		return
	}

	payload := mustMarshal(model.MarketplacePayload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       formFloat(r, "price"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		Contact:     r.FormValue("contact"),
	})

	listing, err := h.listings.Create(r.Context(), identity, model.KindMarketplace, payload, attachment, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// CreateBuyRequest handles POST /api/buy-requests. Buy requests have no
// attachment, so the form posts plain JSON.
func (h *ListingHandler) CreateBuyRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var p model.BuyRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	listing, err := h.listings.Create(r.Context(), identity, model.KindBuyRequest, mustMarshal(p), "", "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	attachment, err := h.uploads.saveImage(r, "image", "rentals")
	if err != nil {
		writeError(w, err)
		return
	}

	// Older rental forms send "price", newer ones "rentPerDay".
	rent := formFloat(r, "rentPerDay")
	if rent == 0 {
		rent = formFloat(r, "price")
	}

	payload := mustMarshal(model.RentalPayload{
		ServiceType:      r.FormValue("serviceType"),
		OtherServiceType: r.FormValue("otherServiceType"),
		VehicleType:      r.FormValue("vehicleType"),
		Brand:            r.FormValue("brand"),
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		RentPerDay:       rent,
		Location:         r.FormValue("location"),
		Contact:          r.FormValue("contact"),
	})

	listing, err := h.listings.Create(r.Context(), identity, model.KindRental, payload, attachment, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// UploadQuestionPaper handles POST /api/question-papers/upload. Papers
// are the one kind whose attachment is mandatory and PDF-only.
func (h *ListingHandler) UploadQuestionPaper(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	attachment, err := h.uploads.savePDF(r, "pdf", "papers")
	if err != nil {
		writeError(w, err)
		return
	}

	payload := mustMarshal(model.QuestionPaperPayload{
		Year:        formInt(r, "year"),
		Semester:    formInt(r, "semester"),
		Branch:      r.FormValue("branch"),
		Subject:     r.FormValue("subject"),
		SubjectCode: r.FormValue("subjectCode"),
	})

	listing, err := h.listings.Create(r.Context(), identity, model.KindQuestionPaper, payload, attachment, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "paper": listing})
}

// List returns a GET handler for one kind, forwarding the recognized
// query parameters as filters.
func (h *ListingHandler) List(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := map[string]string{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		listings, err := h.listings.List(r.Context(), kind, params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listings)
	}
}

// Transition returns the PUT /{id}/<verb> handler for one kind.
func (h *ListingHandler) Transition(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, apperror.Unauthenticated("valid authentication required"))
			return
		}

		if err := h.listings.Transition(r.Context(), identity, kind, chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// Delete returns the DELETE /{id} handler for one kind.
func (h *ListingHandler) Delete(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, apperror.Unauthenticated("valid authentication required"))
			return
		}

		if err := h.listings.Delete(r.Context(), identity, kind, chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// mustMarshal encodes a payload struct. These structs contain only plain
// fields, so encoding cannot fail.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func formFloat(r *http.Request, field string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(field)), 64)
	if err != nil {
		return 0
	}
	return v
}

func formInt(r *http.Request, field string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
	if err != nil {
		return 0
	}
	return v
}
