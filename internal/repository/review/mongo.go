package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mmdr-storefront/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const collectionName = "reviews"

type mongoRepo struct {
	collection *mongo.Collection
	logger     *zap.Logger
	now        func() time.Time
}

func NewMongo(db *mongo.Database, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mongoRepo{
		collection: db.Collection(collectionName),
		logger:     logger.Named("review_repo"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateIndexes sets up the product listing index. Safe to call on every start.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "is_approved", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
	}
	if _, err := db.Collection(collectionName).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *mongoRepo) Create(ctx context.Context, r domain.Review) (*domain.Review, error) {
	now := m.now()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := m.collection.InsertOne(ctx, r); err != nil {
		m.logger.Error("insert failed", zap.String("product", r.ProductID), zap.Error(err))
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}
	m.logger.Info("created", zap.String("id", r.ID), zap.String("product", r.ProductID), zap.Int("rating", r.Rating))
	return &r, nil
}

func (m *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var r domain.Review
	if err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &r, nil
}

func (m *mongoRepo) ListApproved(ctx context.Context, productID string) ([]domain.Review, error) {
	filter := bson.M{"product_id": productID, "is_approved": true}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	out := []domain.Review{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return out, nil
}

func (m *mongoRepo) Update(ctx context.Context, id string, p Patch) (*domain.Review, error) {
	set := bson.M{"updated_at": m.now()}
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	if p.Comment != nil {
		set["comment"] = *p.Comment
	}
	return m.findAndUpdate(ctx, id, bson.M{"$set": set})
}

func (m *mongoRepo) Moderate(ctx context.Context, id string, approved bool) (*domain.Review, error) {
	return m.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"is_moderated": true,
		"is_approved":  approved,
		"updated_at":   m.now(),
	}})
}

func (m *mongoRepo) findAndUpdate(ctx context.Context, id string, update bson.M) (*domain.Review, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r domain.Review
	if err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		m.logger.Error("update failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return &r, nil
}

// Delete removes the review and returns what was stored.
func (m *mongoRepo) Delete(ctx context.Context, id string) (*domain.Review, error) {
	var r domain.Review
	if err := m.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	m.logger.Info("deleted", zap.String("id", id))
	return &r, nil
}

// RatingSummary aggregates approved reviews per star. Average is unrounded.
func (m *mongoRepo) RatingSummary(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product_id": productID, "is_approved": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$rating", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	var rows []struct {
		Rating int `bson:"_id"`
		Count  int `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}

	summary := &domain.RatingSummary{ByStars: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, row := range rows {
		summary.ByStars[row.Rating] += row.Count
		summary.Count += row.Count
		sum += row.Rating * row.Count
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}
