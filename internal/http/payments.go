package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/gateway/razorpay"
	"github.com/utsavplanner/bookings-and-payments/internal/idempotency"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
)

type createOrderRequest struct {
	BookingID uuid.UUID `json:"bookingId" validate:"required"`
	Amount    int64     `json:"amount" validate:"required"`
	Currency  string    `json:"currency"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
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

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	booking, err := h.repo.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if booking.UserID != p.ID && p.Role != domain.RoleAdmin {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}

	order, err := h.gateway.CreateOrder(r.Context(), razorpay.CreateOrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  "booking_" + booking.ID.String(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"orderId":  order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"key":      h.gateway.KeyID(),
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data}); err != nil {
		h.logger.WithField("booking_id", booking.ID).Warn("failed to store idempotent response", err)
	}
}

type verifyPaymentRequest struct {
	BookingID uuid.UUID `json:"bookingId" validate:"required"`
	OrderID   string    `json:"orderId" validate:"required"`
	PaymentID string    `json:"paymentId" validate:"required"`
	Signature string    `json:"signature" validate:"required"`
}

// VerifyPayment trusts the gateway signature, not the caller: any
// authenticated principal may deliver the callback, and a valid signature is
// the proof the payment completed.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}

	if !razorpay.VerifySignature(req.OrderID, req.PaymentID, req.Signature, h.cfg.RazorpaySecret) {
		observability.PaymentVerifyFailures.Inc()
		h.writeError(w, domain.ErrInvalidSignature)
		return
	}

	booking, err := h.repo.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	confirmed := domain.ConfirmPayment(*booking, req.OrderID, req.PaymentID, req.Signature, h.clock)
	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.repo.UpdateBooking(r.Context(), tx, confirmed)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.audit.LogPaymentVerified(r.Context(), p.ID, confirmed); err != nil {
		h.logger.Warn("failed to write audit log", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"booking_id": confirmed.ID,
		"order_id":   req.OrderID,
		"payment_id": req.PaymentID,
	})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	if err := h.rabbitPub.Publish(r.Context(), "booking.confirmed", msg); err != nil {
		h.logger.Warn("failed to publish booking.confirmed", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "payment verified and booking confirmed"})
}
