package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

// transitions lists the allowed user-driven status moves. Completed and
// Cancelled are terminal. The gateway verification path flips
// Pending -> Confirmed directly and does not go through this table.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Patch is a field-wise booking update. Nil pointers mean "leave unchanged".
// eventId, vendorId and userId are not representable here on purpose; the
// HTTP layer rejects attempts to change them before a Patch is ever built.
type Patch struct {
	ServiceDetails *ServiceDetails
	EventDate      *time.Time
	Amount         *float64
	AdvancePaid    *float64
	Status         *Status
	PaymentStatus  *PaymentStatus
	Notes          *string
	Rating         *int
	Review         *string
}

// Apply validates the whole patch against the current booking and, only if
// every field passes, writes it onto a copy. It reports whether the patch
// changed the rating to a new value, which is what triggers a recompute.
func Apply(b Booking, p Patch, now Clock) (Booking, bool, error) {
	if p.Status != nil {
		if !ValidStatus(*p.Status) {
			return b, false, NewValidationError("status", "unknown status")
		}
		if *p.Status != b.Status && !CanTransition(b.Status, *p.Status) {
			return b, false, errors.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, *p.Status)
		}
	}
	if p.PaymentStatus != nil && !ValidPaymentStatus(*p.PaymentStatus) {
		return b, false, NewValidationError("paymentStatus", "unknown payment status")
	}
	if p.Amount != nil && *p.Amount < 0 {
		return b, false, NewValidationError("amount", "must be >= 0")
	}
	if p.AdvancePaid != nil && *p.AdvancePaid < 0 {
		return b, false, NewValidationError("advancePaid", "must be >= 0")
	}
	if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
		return b, false, NewValidationError("rating", "must be between 1 and 5")
	}

	ratingChanged := p.Rating != nil && (b.Rating == nil || *b.Rating != *p.Rating)

	if p.ServiceDetails != nil {
		b.ServiceDetails = *p.ServiceDetails
	}
	if p.EventDate != nil {
		b.EventDate = *p.EventDate
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.AdvancePaid != nil {
		b.AdvancePaid = *p.AdvancePaid
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Rating != nil {
		r := *p.Rating
		b.Rating = &r
	}
	if p.Review != nil {
		b.Review = *p.Review
	}
	b.UpdatedAt = now()
	return b, ratingChanged, nil
}

// ConfirmPayment is the privileged gateway-driven transition: it bypasses the
// transition table, marks the booking paid and records the gateway triple.
func ConfirmPayment(b Booking, orderID, paymentID, signature string, now Clock) Booking {
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.Payment = PaymentRecord{OrderID: orderID, PaymentID: paymentID, Signature: signature}
	b.UpdatedAt = now()
	return b
}
