package model

import (
	"encoding/json"
	"time"
)

// Kind identifies which of the community resource types a Listing is.
type Kind string

const (
	KindLostItem      Kind = "lost-item"
	KindMarketplace   Kind = "marketplace"
	KindBuyRequest    Kind = "buy-request"
	KindRental        Kind = "rental"
	KindQuestionPaper Kind = "question-paper"
)

// Listing is the common envelope shared by every community resource.
//
// The five resource types differ only in their payload and lifecycle, so
// they share one record shape: identity, ownership, status, attachment and
// timestamps live in the envelope; the kind-specific fields live in
// Payload. Ownership checks, status transitions and notification fan-out
// are written once against the envelope.
//
// OwnerName and OwnerRegistration are copied from the creator at write
// time and intentionally never re-synced with later profile edits, so a
// post keeps its historical attribution.
type Listing struct {
	ID                string          `json:"id"`
	Kind              Kind            `json:"kind"`
	Status            string          `json:"status,omitempty"`
	OwnerID           string          `json:"ownerId"`
	OwnerName         string          `json:"postedBy"`
	OwnerRegistration string          `json:"postedByRegistration"`
	Attachment        string          `json:"attachment,omitempty"`
	Payload           json.RawMessage `json:"payload"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// KindSpec describes the lifecycle of one listing kind: its initial
// status, the single owner-only transition it supports, and the
// notification types emitted on creation (broadcast) and transition
// (owner-only).
type KindSpec struct {
	InitialStatus  string
	TransitionVerb string // URL verb, e.g. "sold" in PUT /api/marketplace/{id}/sold
	TransitionTo   string
	BroadcastType  NotificationType
	TransitionType NotificationType
}

// HasStatus reports whether this kind carries a lifecycle status at all.
func (s KindSpec) HasStatus() bool { return s.InitialStatus != "" }

var kindSpecs = map[Kind]KindSpec{
	KindLostItem: {
		InitialStatus:  "lost",
		TransitionVerb: "found",
		TransitionTo:   "found",
		BroadcastType:  NotificationLost,
		TransitionType: NotificationFound,
	},
	KindMarketplace: {
		InitialStatus:  "available",
		TransitionVerb: "sold",
		TransitionTo:   "sold",
		BroadcastType:  NotificationSell,
		TransitionType: NotificationSell,
	},
	KindBuyRequest: {
		InitialStatus:  "open",
		TransitionVerb: "fulfilled",
		TransitionTo:   "fulfilled",
		BroadcastType:  NotificationBuy,
		TransitionType: NotificationBuy,
	},
	KindRental: {
		InitialStatus:  "available",
		TransitionVerb: "rented",
		TransitionTo:   "rented",
		BroadcastType:  NotificationRental,
		TransitionType: NotificationRental,
	},
	// Question papers have no lifecycle: uploaded once, never transitioned.
	KindQuestionPaper: {},
}

// SpecFor returns the lifecycle spec for a kind and whether the kind exists.
func SpecFor(k Kind) (KindSpec, bool) {
	spec, ok := kindSpecs[k]
	return spec, ok
}

// LostItemPayload is the kind-specific data of a lost or found item.
// Date is free-form text (the reporter's description of when), matching
// what the posting form collects.
type LostItemPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Contact     string `json:"contact"`
}

type MarketplacePayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Condition   string  `json:"condition"`
	Contact     string  `json:"contact"`
}

type BuyRequestPayload struct {
	ItemName    string  `json:"itemName"`
	Description string  `json:"description"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	Category    string  `json:"category"`
	Model       string  `json:"model"`
	Contact     string  `json:"contact"`
}

type RentalPayload struct {
	ServiceType      string  `json:"serviceType"`
	OtherServiceType string  `json:"otherServiceType"`
	VehicleType      string  `json:"vehicleType"`
	Brand            string  `json:"brand"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	RentPerDay       float64 `json:"rentPerDay"`
	Location         string  `json:"location"`
	Contact          string  `json:"contact"`
}

type QuestionPaperPayload struct {
	Year        int    `json:"year"`
	Semester    int    `json:"semester"`
	Branch      string `json:"branch"`
	Subject     string `json:"subject"`
	SubjectCode string `json:"subjectCode"`
}
