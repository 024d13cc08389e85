package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ListActiveProducts(ctx context.Context, categoryID string) ([]models.Product, error) {
	return s.ListProducts(ctx, models.ProductFilter{Status: models.ProductActive, Category_id: categoryID})
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Category_id != "" {
		query["category_id"] = filter.Category_id
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})
	cursor, err := s.foodCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	var docs []foodDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode foods: %w", err)
	}
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var doc foodDoc
	err := s.foodCollection.FindOne(ctx, bson.M{"food_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, models.ProductNotFound(id)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get food %s: %w", id, err)
	}
	return doc.model(), nil
}

func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	doc := foodDoc{
		ID:          primitive.NewObjectID(),
		Food_id:     p.Product_id,
		Name:        p.Name,
		Price_cents: helpers.ToCents(p.Price),
		Category_id: p.Category_id,
		Status:      string(p.Status),
		Description: p.Description,
		Created_at:  s.now(),
	}
	doc.Updated_at = doc.Created_at
	if doc.Food_id == "" {
		doc.Food_id = doc.ID.Hex()
	}
	if _, err := s.foodCollection.InsertOne(ctx, doc); err != nil {
		return models.Product{}, fmt.Errorf("insert food: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: p.Name},
		{Key: "price_cents", Value: helpers.ToCents(p.Price)},
		{Key: "category_id", Value: p.Category_id},
		{Key: "status", Value: string(p.Status)},
		{Key: "description", Value: p.Description},
		{Key: "updated_at", Value: s.now()},
	}}}
	var doc foodDoc
	err := s.foodCollection.FindOneAndUpdate(ctx, bson.M{"food_id": p.Product_id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, models.ProductNotFound(p.Product_id)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("update food %s: %w", p.Product_id, err)
	}
	return doc.model(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.categoryCollection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Category{Category_id: d.Category_id, Name: d.Name, Icon: d.Icon})
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	doc := categoryDoc{ID: primitive.NewObjectID(), Category_id: c.Category_id, Name: c.Name, Icon: c.Icon}
	if doc.Category_id == "" {
		doc.Category_id = doc.ID.Hex()
	}
	if _, err := s.categoryCollection.InsertOne(ctx, doc); err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return models.Category{Category_id: doc.Category_id, Name: doc.Name, Icon: doc.Icon}, nil
}
