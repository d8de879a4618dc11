package rating

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
)

// BookingSource yields every booking for a vendor that carries a rating.
type BookingSource interface {
	RatedBookings(ctx context.Context, vendorID uuid.UUID) ([]domain.Booking, error)
}

// VendorWriter persists the derived rating fields.
type VendorWriter interface {
	UpdateRatings(ctx context.Context, vendorID uuid.UUID, average float64, count int, now time.Time) error
}

// Cache invalidates the cached ratings projection after a recompute.
type Cache interface {
	InvalidateVendorRatings(ctx context.Context, vendorID string) error
}

type Aggregator struct {
	bookings BookingSource
	vendors  VendorWriter
	cache    Cache
	clock    domain.Clock
	logger   observability.Logger
}

func NewAggregator(bookings BookingSource, vendors VendorWriter, cache Cache, clock domain.Clock, logger observability.Logger) *Aggregator {
	return &Aggregator{bookings: bookings, vendors: vendors, cache: cache, clock: clock, logger: logger}
}

// Recompute derives the vendor's average rating and review count from its
// rated bookings. Idempotent: the same booking set always yields the same
// aggregate. When no rated bookings exist the vendor is left untouched.
func (a *Aggregator) Recompute(ctx context.Context, vendorID uuid.UUID) error {
	rated, err := a.bookings.RatedBookings(ctx, vendorID)
	if err != nil {
		return err
	}
	if len(rated) == 0 {
		return nil
	}

	total := 0
	for _, b := range rated {
		total += *b.Rating
	}
	average := float64(total) / float64(len(rated))

	if err := a.vendors.UpdateRatings(ctx, vendorID, average, len(rated), a.clock()); err != nil {
		return err
	}
	observability.RatingRecomputes.Inc()

	if a.cache != nil {
		if err := a.cache.InvalidateVendorRatings(ctx, vendorID.String()); err != nil {
			a.logger.Warn("failed to invalidate ratings cache", err)
		}
	}
	return nil
}
