package domain

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time so transitions stay deterministic in tests.
type Clock func() time.Time

type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPartial  PaymentStatus = "Partial"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

type ServiceDetails struct {
	ServiceName string  `json:"serviceName"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// PaymentRecord is populated only by a successful gateway verification.
type PaymentRecord struct {
	OrderID   string `json:"orderId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type Booking struct {
	ID             uuid.UUID      `json:"id"`
	EventID        uuid.UUID      `json:"eventId"`
	VendorID       uuid.UUID      `json:"vendorId"`
	UserID         uuid.UUID      `json:"userId"`
	ServiceDetails ServiceDetails `json:"serviceDetails"`
	BookingDate    time.Time      `json:"bookingDate"`
	EventDate      time.Time      `json:"eventDate"`
	Amount         float64        `json:"amount"`
	AdvancePaid    float64        `json:"advancePaid"`
	Status         Status         `json:"status"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	Payment        PaymentRecord  `json:"payment"`
	Notes          string         `json:"notes,omitempty"`
	Rating         *int           `json:"rating,omitempty"`
	Review         string         `json:"review,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewBooking builds a Pending booking; bookingDate is the creation instant.
func NewBooking(eventID, vendorID, userID uuid.UUID, details ServiceDetails, eventDate time.Time, amount, advancePaid float64, now Clock) Booking {
	ts := now()
	return Booking{
		ID:             uuid.New(),
		EventID:        eventID,
		VendorID:       vendorID,
		UserID:         userID,
		ServiceDetails: details,
		BookingDate:    ts,
		EventDate:      eventDate,
		Amount:         amount,
		AdvancePaid:    advancePaid,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}
