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

type VendorStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewVendorStore(db *mongo.Database, logger observability.Logger) *VendorStore {
	return &VendorStore{
		coll:   db.Collection("vendors"),
		logger: logger,
	}
}

// EnsureIndexes creates the unique user_id index; profile uniqueness is the
// store's constraint, not application locking.
func (s *VendorStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type PriceRange struct {
	Min      float64 `bson:"min" json:"min"`
	Max      float64 `bson:"max" json:"max"`
	Currency string  `bson:"currency" json:"currency"`
}

type Ratings struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

type VendorDoc struct {
	ID           uuid.UUID  `bson:"_id" json:"id"`
	UserID       uuid.UUID  `bson:"user_id" json:"userId"`
	BusinessName string     `bson:"business_name" json:"businessName"`
	Category     string     `bson:"category" json:"category"`
	Description  string     `bson:"description,omitempty" json:"description,omitempty"`
	City         string     `bson:"city" json:"city"`
	PriceRange   PriceRange `bson:"price_range" json:"priceRange"`
	Ratings      Ratings    `bson:"ratings" json:"ratings"`
	CreatedAt    time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (s *VendorStore) CreateVendor(ctx context.Context, vendor VendorDoc) error {
	_, err := s.coll.InsertOne(ctx, vendor)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateVendorProfile
	}
	if err != nil {
		s.logger.Error("failed to create vendor", err)
		return err
	}
	return nil
}

func (s *VendorStore) GetVendor(ctx context.Context, id uuid.UUID) (*VendorDoc, error) {
	var vendor VendorDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&vendor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get vendor", err)
		return nil, err
	}
	return &vendor, nil
}

// FindByUserID resolves the vendor profile linked to a user, if any.
func (s *VendorStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*VendorDoc, error) {
	var vendor VendorDoc
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&vendor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (s *VendorStore) ListVendors(ctx context.Context, category string) ([]VendorDoc, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "ratings.average", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	vendors := []VendorDoc{}
	if err := cur.All(ctx, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

// UpdateRatings is the only write path for the derived rating fields.
func (s *VendorStore) UpdateRatings(ctx context.Context, vendorID uuid.UUID, average float64, count int, now time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": vendorID},
		bson.M{"$set": bson.M{
			"ratings.average": average,
			"ratings.count":   count,
			"updated_at":      now,
		}},
	)
	if err != nil {
		s.logger.Error("failed to update vendor ratings", err)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
