package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	cursor, err := s.tableCollection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "table_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var docs []tableDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	out := make([]models.Table, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) GetTable(ctx context.Context, id int) (models.Table, error) {
	var doc tableDoc
	err := s.tableCollection.FindOne(ctx, bson.M{"table_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Table{}, models.TableNotFound(id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("get table %d: %w", id, err)
	}
	return doc.model(), nil
}

func (s *Store) CreateTable(ctx context.Context, t models.Table) (models.Table, error) {
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	doc := tableDoc{
		ID:          primitive.NewObjectID(),
		Table_id:    t.Table_id,
		Name:        t.Name,
		Status:      string(t.Status),
		Total_cents: helpers.ToCents(t.Total_amount),
		Updated_at:  s.now(),
	}
	if _, err := s.tableCollection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Table{}, models.NewValidationError("table_id", "table %d already exists", t.Table_id)
		}
		return models.Table{}, fmt.Errorf("insert table: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateTable(ctx context.Context, id int, patch models.TablePatch) (models.Table, error) {
	set := bson.D{{Key: "updated_at", Value: s.now()}}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*patch.Status)})
	}
	if patch.Total_amount != nil {
		set = append(set, bson.E{Key: "total_cents", Value: helpers.ToCents(*patch.Total_amount)})
	}
	return s.findAndUpdateTable(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (s *Store) AddToBalance(ctx context.Context, id int, delta decimal.Decimal) (models.Table, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "total_cents", Value: helpers.ToCents(delta)}}},
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(models.TableOccupied)},
			{Key: "updated_at", Value: s.now()},
		}},
	}
	return s.findAndUpdateTable(ctx, id, update)
}

func (s *Store) CompareAndSwap(ctx context.Context, id int, prev, next models.TableState) (bool, error) {
	filter := bson.M{
		"table_id":    id,
		"status":      string(prev.Status),
		"total_cents": helpers.ToCents(prev.Total_amount),
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(next.Status)},
		{Key: "total_cents", Value: helpers.ToCents(next.Total_amount)},
		{Key: "updated_at", Value: s.now()},
	}}}
	result, err := s.tableCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("swap table %d: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

func (s *Store) findAndUpdateTable(ctx context.Context, id int, update bson.D) (models.Table, error) {
	var doc tableDoc
	err := s.tableCollection.FindOneAndUpdate(ctx, bson.M{"table_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Table{}, models.TableNotFound(id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("update table %d: %w", id, err)
	}
	return doc.model(), nil
}
