package database

import (
	"context"
	"fmt"

	"github.com/insightboard/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureInsightIndexes creates the secondary indexes the filter and
// breakdown queries lean on. Existing indexes are left untouched.
func EnsureInsightIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "topic", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "sector", Value: 1}, {Key: "region", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}, {Key: "topic", Value: 1}}},
		{Keys: bson.D{{Key: "intensity", Value: 1}, {Key: "relevance", Value: 1}, {Key: "likelihood", Value: 1}}},
		{Keys: bson.D{{Key: "pestle", Value: 1}, {Key: "sector", Value: 1}}},
		{Keys: bson.D{{Key: "end_year", Value: 1}, {Key: "sector", Value: 1}}},
	}
	if _, err := db.Collection(models.InsightCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create insight indexes: %w", err)
	}
	return nil
}
