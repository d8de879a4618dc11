package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewEventStore(db *mongo.Database, logger observability.Logger) *EventStore {
	return &EventStore{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID          uuid.UUID   `bson:"_id" json:"id"`
	UserID      uuid.UUID   `bson:"user_id" json:"userId"`
	EventType   string      `bson:"event_type" json:"eventType"`
	EventName   string      `bson:"event_name" json:"eventName"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   time.Time   `bson:"start_date" json:"startDate"`
	EndDate     time.Time   `bson:"end_date" json:"endDate"`
	GuestCount  int         `bson:"guest_count" json:"guestCount"`
	Status      string      `bson:"status" json:"status"`
	Bookings    []uuid.UUID `bson:"bookings" json:"bookings"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updatedAt"`
}

func (s *EventStore) CreateEvent(ctx context.Context, event EventDoc) error {
	if event.Bookings == nil {
		event.Bookings = []uuid.UUID{}
	}
	_, err := s.coll.InsertOne(ctx, event)
	if err != nil {
		s.logger.Error("failed to create event", err)
		return err
	}
	return nil
}

func (s *EventStore) GetEvent(ctx context.Context, id uuid.UUID) (*EventDoc, error) {
	var event EventDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get event", err)
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) ListByOwner(ctx context.Context, userID uuid.UUID) ([]EventDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []EventDoc{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AppendBooking adds the booking id to the event's backref list. This runs
// after the booking row is committed; the two writes are not atomic and the
// list may lag behind the bookings table.
func (s *EventStore) AppendBooking(ctx context.Context, eventID, bookingID uuid.UUID, now time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$addToSet": bson.M{"bookings": bookingID},
			"$set":      bson.M{"updated_at": now},
		},
	)
	if err != nil {
		s.logger.Error("failed to append booking to event", err)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *EventStore) RemoveBooking(ctx context.Context, eventID, bookingID uuid.UUID, now time.Time) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$pull": bson.M{"bookings": bookingID},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		s.logger.Error("failed to remove booking from event", err)
		return err
	}
	return nil
}
