package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogAction(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogBookingDeleted(ctx context.Context, actor uuid.UUID, b domain.Booking) error {
	return a.LogAction(ctx, "booking.deleted", actor, map[string]interface{}{
		"booking_id": b.ID,
		"event_id":   b.EventID,
		"vendor_id":  b.VendorID,
		"status":     b.Status,
	})
}

func (a *AuditLogger) LogPaymentVerified(ctx context.Context, actor uuid.UUID, b domain.Booking) error {
	return a.LogAction(ctx, "payment.verified", actor, map[string]interface{}{
		"booking_id": b.ID,
		"order_id":   b.Payment.OrderID,
		"payment_id": b.Payment.PaymentID,
		"amount":     b.Amount,
	})
}
