// Package mongostore keeps the POS data in MongoDB. Order writes and change
// streams need a replica set.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go-restaurant-pos/database"
	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"
	"go-restaurant-pos/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client *mongo.Client

	tableCollection     *mongo.Collection
	orderCollection     *mongo.Collection
	orderItemCollection *mongo.Collection
	foodCollection      *mongo.Collection
	categoryCollection  *mongo.Collection

	now func() time.Time
}

func New(client *mongo.Client, dbName string) *Store {
	return &Store{
		client:              client,
		tableCollection:     database.OpenCollection(client, dbName, "table"),
		orderCollection:     database.OpenCollection(client, dbName, "order"),
		orderItemCollection: database.OpenCollection(client, dbName, "orderItem"),
		foodCollection:      database.OpenCollection(client, dbName, "food"),
		categoryCollection:  database.OpenCollection(client, dbName, "category"),
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Backend() store.Backend {
	return store.Backend{
		Catalog: s,
		Tables:  s,
		Orders:  s,
		Close:   s.client.Disconnect,
	}
}

// EnsureIndexes creates the unique keys the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.tableCollection, mongo.IndexModel{Keys: bson.D{{Key: "table_id", Value: 1}}, Options: unique}},
		{s.orderCollection, mongo.IndexModel{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: unique}},
		{s.orderCollection, mongo.IndexModel{Keys: bson.D{{Key: "submission_id", Value: 1}}, Options: unique}},
		{s.orderCollection, mongo.IndexModel{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "status", Value: 1}}}},
		{s.orderCollection, mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}},
		{s.orderItemCollection, mongo.IndexModel{Keys: bson.D{{Key: "order_id", Value: 1}}}},
		{s.foodCollection, mongo.IndexModel{Keys: bson.D{{Key: "food_id", Value: 1}}, Options: unique}},
		{s.categoryCollection, mongo.IndexModel{Keys: bson.D{{Key: "category_id", Value: 1}}, Options: unique}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

type tableDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Table_id    int                `bson:"table_id"`
	Name        string             `bson:"name"`
	Status      string             `bson:"status"`
	Total_cents int64              `bson:"total_cents"`
	Updated_at  time.Time          `bson:"updated_at"`
}

func (d tableDoc) model() models.Table {
	return models.Table{
		Table_id:     d.Table_id,
		Name:         d.Name,
		Status:       models.TableStatus(d.Status),
		Total_amount: helpers.FromCents(d.Total_cents),
		Updated_at:   d.Updated_at,
	}
}

type orderDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Order_id      string             `bson:"order_id"`
	Submission_id string             `bson:"submission_id"`
	Table_id      int                `bson:"table_id"`
	Status        string             `bson:"status"`
	Total_cents   int64              `bson:"total_cents"`
	Created_at    time.Time          `bson:"created_at"`
	Updated_at    time.Time          `bson:"updated_at"`
}

type orderItemDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Order_item_id    string             `bson:"order_item_id"`
	Order_id         string             `bson:"order_id"`
	Food_id          string             `bson:"food_id"`
	Food_name        string             `bson:"food_name"`
	Quantity         int                `bson:"quantity"`
	Unit_price_cents int64              `bson:"unit_price_cents"`
}

func (d orderItemDoc) model() models.OrderItem {
	return models.OrderItem{
		Order_item_id: d.Order_item_id,
		Order_id:      d.Order_id,
		Product_id:    d.Food_id,
		Product_name:  d.Food_name,
		Quantity:      d.Quantity,
		Unit_price:    helpers.FromCents(d.Unit_price_cents),
	}
}

// orderView is an order joined with its items and, optionally, its table.
type orderView struct {
	orderDoc `bson:",inline"`
	Items    []orderItemDoc `bson:"order_items"`
	Table    *tableDoc      `bson:"table,omitempty"`
}

func (v orderView) model() models.Order {
	o := models.Order{
		Order_id:      v.Order_id,
		Submission_id: v.Submission_id,
		Table_id:      v.Table_id,
		Status:        models.OrderStatus(v.Status),
		Total_amount:  helpers.FromCents(v.Total_cents),
		Created_at:    v.Created_at,
		Updated_at:    v.Updated_at,
		Order_items:   make([]models.OrderItem, 0, len(v.Items)),
	}
	for _, item := range v.Items {
		o.Order_items = append(o.Order_items, item.model())
	}
	if v.Table != nil {
		o.Table_name = v.Table.Name
	}
	return o
}

type foodDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Food_id     string             `bson:"food_id"`
	Name        string             `bson:"name"`
	Price_cents int64              `bson:"price_cents"`
	Category_id string             `bson:"category_id"`
	Status      string             `bson:"status"`
	Description *string            `bson:"description,omitempty"`
	Created_at  time.Time          `bson:"created_at"`
	Updated_at  time.Time          `bson:"updated_at"`
}

func (d foodDoc) model() models.Product {
	return models.Product{
		Product_id:  d.Food_id,
		Name:        d.Name,
		Price:       helpers.FromCents(d.Price_cents),
		Category_id: d.Category_id,
		Status:      models.ProductStatus(d.Status),
		Description: d.Description,
		Created_at:  d.Created_at,
		Updated_at:  d.Updated_at,
	}
}

type categoryDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Category_id string             `bson:"category_id"`
	Name        string             `bson:"name"`
	Icon        string             `bson:"icon"`
}
