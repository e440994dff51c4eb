package products

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Repository abstracts the product document store.
type Repository interface {
	List(ctx context.Context, query Query) ([]Product, error)
	GetByContentfulID(ctx context.Context, id string) (Product, error)
	IncrementViewCount(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, stock int) (StockResult, error)
	AdjustStock(ctx context.Context, id string, delta int) (StockResult, error)
	Categories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (Stats, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

// NewRepository builds the MongoDB-backed repository.
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("products")}
}

func (r *mongoRepository) List(ctx context.Context, query Query) ([]Product, error) {
	filter := bson.M{}
	if !query.IncludeInactive {
		filter["active"] = true
	}
	if query.Category != "" {
		filter["category"] = query.Category
	}
	if query.Featured != nil {
		filter["featured"] = *query.Featured
	}
	if query.InStock != nil {
		filter["inStock"] = *query.InStock
	}
	if query.Difficulty != "" {
		filter["difficulty"] = query.Difficulty
	}
	if query.Size != "" {
		filter["size"] = query.Size
	}
	if query.Color != "" {
		filter["color"] = query.Color
	}
	if query.MinPrice != nil || query.MaxPrice != nil {
		price := bson.M{}
		if query.MinPrice != nil {
			price["$gte"] = *query.MinPrice
		}
		if query.MaxPrice != nil {
			price["$lte"] = *query.MaxPrice
		}
		filter["price"] = price
	}
	if query.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"tags": pattern},
			bson.M{"searchKeywords": pattern},
		}
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(query.Skip)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var result []Product
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("products: decode list: %w", err)
	}
	return result, nil
}

func (r *mongoRepository) GetByContentfulID(ctx context.Context, id string) (Product, error) {
	var product Product
	err := r.collection.FindOne(ctx, bson.M{"contentfulId": id, "active": true}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("products: get %s: %w", id, err)
	}
	return product, nil
}

func (r *mongoRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"contentfulId": id},
		bson.M{
			"$inc": bson.M{"viewCount": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return fmt.Errorf("products: increment view count %s: %w", id, err)
	}
	return nil
}

func (r *mongoRepository) UpdateStock(ctx context.Context, id string, stock int) (StockResult, error) {
	now := time.Now()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"contentfulId": id},
		bson.M{"$set": bson.M{
			"stock":           stock,
			"inStock":         stock > 0,
			"lastStockUpdate": now,
			"updatedAt":       now,
		}})
	if err != nil {
		return StockResult{}, fmt.Errorf("products: update stock %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return StockResult{}, shared.ErrNotFound
	}
	return StockResult{Success: true, ContentfulID: id, NewStock: stock, InStock: stock > 0}, nil
}

// AdjustStock applies a relative stock change in a single document update.
// Negative deltas originate from order placement and fail with
// ErrInsufficientStock when the current stock cannot cover them; the matching
// totalSales counter moves in the opposite direction so cancellations unwind
// the sale.
func (r *mongoRepository) AdjustStock(ctx context.Context, id string, delta int) (StockResult, error) {
	now := time.Now()
	filter := bson.M{"contentfulId": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock":           bson.M{"$add": bson.A{"$stock", delta}},
			"totalSales":      bson.M{"$add": bson.A{"$totalSales", -delta}},
			"lastStockUpdate": now,
			"updatedAt":       now,
		}}},
		{{Key: "$set", Value: bson.M{"inStock": bson.M{"$gt": bson.A{"$stock", 0}}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product Product
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if delta < 0 {
			if _, getErr := r.GetByContentfulID(ctx, id); getErr == nil {
				return StockResult{}, fmt.Errorf("products: adjust stock %s by %d: %w", id, delta, shared.ErrInsufficientStock)
			}
		}
		return StockResult{}, shared.ErrNotFound
	}
	if err != nil {
		return StockResult{}, fmt.Errorf("products: adjust stock %s: %w", id, err)
	}
	return StockResult{Success: true, ContentfulID: id, NewStock: product.Stock, InStock: product.InStock}, nil
}

func (r *mongoRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "category", bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("products: categories: %w", err)
	}
	categories := make([]string, 0, len(values))
	for _, value := range values {
		if category, ok := value.(string); ok {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

func (r *mongoRepository) Stats(ctx context.Context) (Stats, error) {
	byCategory, err := r.aggregateByCategory(ctx)
	if err != nil {
		return Stats{}, err
	}
	totals, err := r.aggregateTotals(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ByCategory: byCategory, Totals: totals}, nil
}

func (r *mongoRepository) aggregateByCategory(ctx context.Context) ([]CategoryStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$category",
			"count":      bson.M{"$sum": 1},
			"totalStock": bson.M{"$sum": "$stock"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"totalSales": bson.M{"$sum": "$totalSales"},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("products: stats by category: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var stats []CategoryStats
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("products: decode category stats: %w", err)
	}
	return stats, nil
}

func (r *mongoRepository) aggregateTotals(ctx context.Context) (Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalProducts": bson.M{"$sum": 1},
			"totalStock":    bson.M{"$sum": "$stock"},
			"totalValue":    bson.M{"$sum": bson.M{"$multiply": bson.A{"$stock", "$price"}}},
			"totalSales":    bson.M{"$sum": "$totalSales"},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, fmt.Errorf("products: stats totals: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var totals []Totals
	if err := cursor.All(ctx, &totals); err != nil {
		return Totals{}, fmt.Errorf("products: decode totals: %w", err)
	}
	if len(totals) == 0 {
		return Totals{}, nil
	}
	return totals[0], nil
}
