package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/idempotency"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"golang.org/x/sync/errgroup"
)

type createBookingRequest struct {
	EventID        uuid.UUID             `json:"eventId" validate:"required"`
	VendorID       uuid.UUID             `json:"vendorId" validate:"required"`
	EventDate      time.Time             `json:"eventDate" validate:"required"`
	Amount         float64               `json:"amount" validate:"gte=0"`
	AdvancePaid    float64               `json:"advancePaid" validate:"gte=0"`
	ServiceDetails domain.ServiceDetails `json:"serviceDetails"`
	Notes          string                `json:"notes"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}

	// Event ownership and vendor existence are independent reads.
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		event, err := h.events.GetEvent(gctx, req.EventID)
		if err != nil {
			return errors.Wrap(err, "event")
		}
		if event.UserID != p.ID {
			return errors.Wrap(domain.ErrUnauthorized, "event is not owned by the requesting user")
		}
		return nil
	})
	g.Go(func() error {
		_, err := h.vendors.GetVendor(gctx, req.VendorID)
		return errors.Wrap(err, "vendor")
	})
	if err := g.Wait(); err != nil {
		h.writeError(w, err)
		return
	}

	booking := domain.NewBooking(req.EventID, req.VendorID, p.ID, req.ServiceDetails, req.EventDate, req.Amount, req.AdvancePaid, h.clock)
	booking.Notes = req.Notes

	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if err := h.repo.CreateBooking(r.Context(), tx, booking); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": booking.ID,
			"event_id":   booking.EventID,
			"vendor_id":  booking.VendorID,
		})
		return h.repo.InsertOutbox(r.Context(), tx, crdb.NewBookingOutbox(booking.ID, "booking.created", payload))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	observability.BookingsCreated.Inc()

	// Second, non-atomic write; a failure here leaves the backref stale until
	// the booking is deleted. Accepted as a best-effort link.
	if err := h.events.AppendBooking(r.Context(), booking.EventID, booking.ID, h.clock()); err != nil {
		h.logger.WithField("booking_id", booking.ID).Warn("failed to append booking to event", err)
	}

	data, _ := json.Marshal(booking)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
		h.logger.WithField("booking_id", booking.ID).Warn("failed to store idempotent response", err)
	}
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	filter := crdb.Filter{}
	if p.Role == domain.RoleVendor {
		vendor, err := h.vendors.FindByUserID(r.Context(), p.ID)
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, []domain.Booking{})
			return
		}
		if err != nil {
			h.writeError(w, err)
			return
		}
		filter.VendorID = &vendor.ID
	} else {
		id := p.ID
		filter.UserID = &id
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.Status(s)
		if !domain.ValidStatus(status) {
			h.writeError(w, domain.NewValidationError("status", "unknown status"))
			return
		}
		filter.Status = &status
	}
	if e := r.URL.Query().Get("eventId"); e != "" {
		eventID, err := uuid.Parse(e)
		if err != nil {
			h.writeError(w, domain.NewValidationError("eventId", "invalid id"))
			return
		}
		filter.EventID = &eventID
	}

	bookings, err := h.repo.ListBookings(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "invalid id"))
		return
	}

	booking, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !domain.CanRead(p, *booking) {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type updateBookingRequest struct {
	EventID        *uuid.UUID             `json:"eventId"`
	VendorID       *uuid.UUID             `json:"vendorId"`
	UserID         *uuid.UUID             `json:"userId"`
	ServiceDetails *domain.ServiceDetails `json:"serviceDetails"`
	EventDate      *time.Time             `json:"eventDate"`
	Amount         *float64               `json:"amount"`
	AdvancePaid    *float64               `json:"advancePaid"`
	Status         *domain.Status         `json:"status"`
	PaymentStatus  *domain.PaymentStatus  `json:"paymentStatus"`
	Notes          *string                `json:"notes"`
	Rating         *int                   `json:"rating"`
	Review         *string                `json:"review"`
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "invalid id"))
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}

	booking, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !domain.CanWrite(p, *booking) {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}

	if req.EventID != nil && *req.EventID != booking.EventID {
		h.writeError(w, errors.Wrap(domain.ErrInvalidMutation, "eventId"))
		return
	}
	if req.VendorID != nil && *req.VendorID != booking.VendorID {
		h.writeError(w, errors.Wrap(domain.ErrInvalidMutation, "vendorId"))
		return
	}
	if req.UserID != nil && *req.UserID != booking.UserID {
		h.writeError(w, errors.Wrap(domain.ErrInvalidMutation, "userId"))
		return
	}

	patch := domain.Patch{
		ServiceDetails: req.ServiceDetails,
		EventDate:      req.EventDate,
		Amount:         req.Amount,
		AdvancePaid:    req.AdvancePaid,
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		Notes:          req.Notes,
		Rating:         req.Rating,
		Review:         req.Review,
	}
	updated, ratingChanged, err := domain.Apply(*booking, patch, h.clock)
	if err != nil {
		h.writeError(w, err)
		return
	}

	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if err := h.repo.UpdateBooking(r.Context(), tx, updated); err != nil {
			return err
		}
		if ratingChanged {
			payload, _ := json.Marshal(map[string]interface{}{
				"booking_id": updated.ID,
				"vendor_id":  updated.VendorID,
				"rating":     *updated.Rating,
			})
			return h.repo.InsertOutbox(r.Context(), tx, crdb.NewBookingOutbox(updated.ID, "booking.rated", payload))
		}
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "invalid id"))
		return
	}

	booking, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !domain.CanDelete(p, *booking) {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}

	if err := h.repo.DeleteBooking(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.events.RemoveBooking(r.Context(), booking.EventID, booking.ID, h.clock()); err != nil {
		h.logger.WithField("booking_id", booking.ID).Warn("failed to detach booking from event", err)
	}
	if err := h.audit.LogBookingDeleted(r.Context(), p.ID, *booking); err != nil {
		h.logger.Warn("failed to write audit log", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{"booking_id": booking.ID, "vendor_id": booking.VendorID})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	if err := h.rabbitPub.Publish(r.Context(), "booking.deleted", msg); err != nil {
		h.logger.Warn("failed to publish booking.deleted", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "booking deleted"})
}
