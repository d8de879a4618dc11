package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/mongo"
	redisadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/redis"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
)

type createEventRequest struct {
	EventType   string    `json:"eventType" validate:"required"`
	EventName   string    `json:"eventName" validate:"required"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	GuestCount  int       `json:"guestCount" validate:"required,gte=1"`
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}

	now := h.clock()
	event := mongoadapter.EventDoc{
		ID:          uuid.New(),
		UserID:      p.ID,
		EventType:   req.EventType,
		EventName:   req.EventName,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		GuestCount:  req.GuestCount,
		Status:      "Planning",
		Bookings:    []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.events.CreateEvent(r.Context(), event); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	events, err := h.events.ListByOwner(r.Context(), p.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "invalid id"))
		return
	}

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if event.UserID != p.ID && p.Role != domain.RoleAdmin {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type createVendorRequest struct {
	BusinessName string  `json:"businessName" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Description  string  `json:"description"`
	City         string  `json:"city" validate:"required"`
	PriceMin     float64 `json:"priceMin" validate:"gte=0"`
	PriceMax     float64 `json:"priceMax" validate:"gte=0"`
}

func (h *Handlers) CreateVendor(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	var req createVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}

	now := h.clock()
	vendor := mongoadapter.VendorDoc{
		ID:           uuid.New(),
		UserID:       p.ID,
		BusinessName: req.BusinessName,
		Category:     req.Category,
		Description:  req.Description,
		City:         req.City,
		PriceRange:   mongoadapter.PriceRange{Min: req.PriceMin, Max: req.PriceMax, Currency: "INR"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The unique user_id index is the real guard; a race between two creates
	// surfaces as the duplicate-profile error from the store.
	if err := h.vendors.CreateVendor(r.Context(), vendor); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vendor)
}

func (h *Handlers) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.vendors.ListVendors(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (h *Handlers) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "invalid id"))
		return
	}

	vendor, err := h.vendors.GetVendor(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Ratings are served through the cache; the aggregator invalidates it on
	// every recompute.
	cached, err := h.cache.GetVendorRatings(r.Context(), id.String())
	if err == nil && cached != nil {
		vendor.Ratings = mongoadapter.Ratings{Average: cached.Average, Count: cached.Count}
	} else if err == nil {
		h.cache.SetVendorRatings(r.Context(), id.String(), redisadapter.VendorRatings{
			Average: vendor.Ratings.Average,
			Count:   vendor.Ratings.Count,
		}, 10*time.Minute)
	}

	writeJSON(w, http.StatusOK, vendor)
}

var vendorCategories = []string{
	"Tent House",
	"DJ",
	"Catering",
	"Confectioner",
	"Photography",
	"Videography",
	"Decoration",
	"Mehendi Artist",
	"Makeup Artist",
	"Bridal Wear",
	"Groom Wear",
	"Jewelry",
	"Florist",
	"Transportation",
	"Wedding Planner",
	"Sound System",
	"Generator",
	"Lighting",
	"Furniture",
	"Other",
}

func (h *Handlers) VendorCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vendorCategories)
}
