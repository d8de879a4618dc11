package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

var ErrSerializationFailure = errors.New("serialization failure")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (
			id, event_id, vendor_id, user_id,
			service_name, service_description, quantity, unit,
			booking_date, event_date, amount, advance_paid,
			status, payment_status,
			pay_order_id, pay_payment_id, pay_signature,
			notes, rating, review, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, b.ID, b.EventID, b.VendorID, b.UserID,
		b.ServiceDetails.ServiceName, b.ServiceDetails.Description, b.ServiceDetails.Quantity, b.ServiceDetails.Unit,
		b.BookingDate, b.EventDate, b.Amount, b.AdvancePaid,
		b.Status, b.PaymentStatus,
		b.Payment.OrderID, b.Payment.PaymentID, b.Payment.Signature,
		b.Notes, b.Rating, b.Review, b.CreatedAt, b.UpdatedAt)
	return err
}

const bookingColumns = `
	id, event_id, vendor_id, user_id,
	service_name, service_description, quantity, unit,
	booking_date, event_date, amount, advance_paid,
	status, payment_status,
	pay_order_id, pay_payment_id, pay_signature,
	notes, rating, review, created_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.VendorID, &b.UserID,
		&b.ServiceDetails.ServiceName, &b.ServiceDetails.Description, &b.ServiceDetails.Quantity, &b.ServiceDetails.Unit,
		&b.BookingDate, &b.EventDate, &b.Amount, &b.AdvancePaid,
		&b.Status, &b.PaymentStatus,
		&b.Payment.OrderID, &b.Payment.PaymentID, &b.Payment.Signature,
		&b.Notes, &b.Rating, &b.Review, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Filter narrows a listing to one owner dimension plus optional status and
// event. Exactly one of UserID/VendorID must be set.
type Filter struct {
	UserID   *uuid.UUID
	VendorID *uuid.UUID
	Status   *domain.Status
	EventID  *uuid.UUID
}

func (r *Repository) ListBookings(ctx context.Context, f Filter) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE `
	args := []interface{}{}
	switch {
	case f.UserID != nil:
		args = append(args, *f.UserID)
		query += "user_id = $1"
	case f.VendorID != nil:
		args = append(args, *f.VendorID)
		query += "vendor_id = $1"
	default:
		return nil, errors.New("filter requires an owner dimension")
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		query += " AND status = $2"
	}
	if f.EventID != nil {
		args = append(args, *f.EventID)
		if f.Status != nil {
			query += " AND event_id = $3"
		} else {
			query += " AND event_id = $2"
		}
	}
	query += " ORDER BY event_date DESC, created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateBooking writes every mutable column; immutable references are pinned
// by the WHERE clause rather than trusted from the caller.
func (r *Repository) UpdateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	result, err := tx.Exec(ctx, `
		UPDATE bookings SET
			service_name = $2, service_description = $3, quantity = $4, unit = $5,
			event_date = $6, amount = $7, advance_paid = $8,
			status = $9, payment_status = $10,
			pay_order_id = $11, pay_payment_id = $12, pay_signature = $13,
			notes = $14, rating = $15, review = $16, updated_at = $17
		WHERE id = $1 AND event_id = $18 AND vendor_id = $19 AND user_id = $20
	`, b.ID,
		b.ServiceDetails.ServiceName, b.ServiceDetails.Description, b.ServiceDetails.Quantity, b.ServiceDetails.Unit,
		b.EventDate, b.Amount, b.AdvancePaid,
		b.Status, b.PaymentStatus,
		b.Payment.OrderID, b.Payment.PaymentID, b.Payment.Signature,
		b.Notes, b.Rating, b.Review, b.UpdatedAt,
		b.EventID, b.VendorID, b.UserID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RatedBookings returns every booking for the vendor carrying a rating; the
// aggregator recomputes the vendor average from this set.
func (r *Repository) RatedBookings(ctx context.Context, vendorID uuid.UUID) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE vendor_id = $1 AND rating IS NOT NULL
	`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
