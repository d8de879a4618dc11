package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func fixedClock() Clock {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func testBooking(status Status) Booking {
	b := NewBooking(uuid.New(), uuid.New(), uuid.New(), ServiceDetails{ServiceName: "Catering"}, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), 5000, 0, fixedClock())
	b.Status = status
	return b
}

func TestCanTransition_Table(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusInProgress},
		{StatusConfirmed, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusInProgress},
		{StatusConfirmed, StatusCompleted},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusCancelled, StatusPending},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be rejected", tr.from, tr.to)
		}
	}
}

func TestApply_InvalidTransition(t *testing.T) {
	b := testBooking(StatusPending)
	to := StatusCompleted
	_, _, err := Apply(b, Patch{Status: &to}, fixedClock())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApply_SameStatusIsNoopTransition(t *testing.T) {
	b := testBooking(StatusPending)
	to := StatusPending
	updated, _, err := Apply(b, Patch{Status: &to}, fixedClock())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != StatusPending {
		t.Fatalf("expected Pending, got %s", updated.Status)
	}
}

func TestApply_WholePatchValidatedBeforeCommit(t *testing.T) {
	b := testBooking(StatusPending)
	to := StatusConfirmed
	bad := -1.0
	updated, _, err := Apply(b, Patch{Status: &to, Amount: &bad}, fixedClock())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if updated.Status != StatusPending || updated.Amount != b.Amount {
		t.Fatal("failed patch must not apply any field")
	}
}

func TestApply_RatingChangeDetected(t *testing.T) {
	b := testBooking(StatusCompleted)
	r := 4
	updated, changed, err := Apply(b, Patch{Rating: &r}, fixedClock())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !changed {
		t.Fatal("expected rating change to be reported")
	}
	if updated.Rating == nil || *updated.Rating != 4 {
		t.Fatalf("expected rating 4, got %v", updated.Rating)
	}

	_, changed, err = Apply(updated, Patch{Rating: &r}, fixedClock())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if changed {
		t.Fatal("unchanged rating must not trigger a recompute")
	}
}

func TestApply_RatingRange(t *testing.T) {
	b := testBooking(StatusCompleted)
	for _, r := range []int{0, 6, -1} {
		r := r
		if _, _, err := Apply(b, Patch{Rating: &r}, fixedClock()); err == nil {
			t.Errorf("rating %d should be rejected", r)
		}
	}
}

func TestApply_PaymentStatusUnconstrained(t *testing.T) {
	// Deliberately permissive: a plain update may set paymentStatus without
	// any gateway involvement.
	b := testBooking(StatusPending)
	ps := PaymentPaid
	updated, _, err := Apply(b, Patch{PaymentStatus: &ps}, fixedClock())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.PaymentStatus != PaymentPaid {
		t.Fatalf("expected Paid, got %s", updated.PaymentStatus)
	}
	if updated.Status != StatusPending {
		t.Fatal("paymentStatus update must not touch status")
	}
}

func TestApply_RefreshesUpdatedAt(t *testing.T) {
	b := testBooking(StatusPending)
	later := b.UpdatedAt.Add(time.Hour)
	notes := "call vendor"
	updated, _, err := Apply(b, Patch{Notes: &notes}, func() time.Time { return later })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("expected updatedAt %v, got %v", later, updated.UpdatedAt)
	}
}

func TestConfirmPayment_PrivilegedTransition(t *testing.T) {
	b := testBooking(StatusPending)
	updated := ConfirmPayment(b, "order_1", "pay_1", "sig", fixedClock())
	if updated.Status != StatusConfirmed || updated.PaymentStatus != PaymentPaid {
		t.Fatalf("expected Confirmed/Paid, got %s/%s", updated.Status, updated.PaymentStatus)
	}
	if updated.Payment.OrderID != "order_1" || updated.Payment.PaymentID != "pay_1" {
		t.Fatalf("payment record not set: %+v", updated.Payment)
	}
}
