package mongostore

import (
	"context"
	"fmt"
	"time"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InsertOrder writes the order and its items in one transaction.
func (s *Store) InsertOrder(ctx context.Context, o models.Order) (models.Order, error) {
	doc := orderDoc{
		ID:            primitive.NewObjectID(),
		Order_id:      o.Order_id,
		Submission_id: o.Submission_id,
		Table_id:      o.Table_id,
		Status:        string(o.Status),
		Total_cents:   helpers.ToCents(o.Total_amount),
		Created_at:    o.Created_at.UTC(),
	}
	if doc.Order_id == "" {
		doc.Order_id = doc.ID.Hex()
	}
	if doc.Created_at.IsZero() {
		doc.Created_at = s.now()
	}
	doc.Updated_at = doc.Created_at

	items := make([]interface{}, 0, len(o.Order_items))
	view := orderView{orderDoc: doc}
	for _, item := range o.Order_items {
		itemDoc := orderItemDoc{
			ID:               primitive.NewObjectID(),
			Order_id:         doc.Order_id,
			Food_id:          item.Product_id,
			Food_name:        item.Product_name,
			Quantity:         item.Quantity,
			Unit_price_cents: helpers.ToCents(item.Unit_price),
		}
		itemDoc.Order_item_id = itemDoc.ID.Hex()
		items = append(items, itemDoc)
		view.Items = append(view.Items, itemDoc)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return models.Order{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := s.orderCollection.InsertOne(sessCtx, doc); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if _, err := s.orderItemCollection.InsertMany(sessCtx, items); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.Order{}, models.ErrDuplicateSubmission
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return view.model(), nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	orders, err := s.aggregateOrders(ctx, bson.D{{Key: "order_id", Value: id}}, 1, 0, false)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, models.OrderNotFound(id)
	}
	return orders[0], nil
}

func (s *Store) GetOrderBySubmission(ctx context.Context, submissionID string) (models.Order, error) {
	orders, err := s.aggregateOrders(ctx, bson.D{{Key: "submission_id", Value: submissionID}}, 1, 0, false)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, &models.NotFoundError{Entity: "submission", ID: submissionID}
	}
	return orders[0], nil
}

func (s *Store) ListOrdersForTable(ctx context.Context, tableID int, exclude []models.OrderStatus) ([]models.Order, error) {
	match := bson.D{{Key: "table_id", Value: tableID}}
	if len(exclude) > 0 {
		match = append(match, bson.E{Key: "status", Value: bson.D{{Key: "$nin", Value: statusStrings(exclude)}}})
	}
	return s.aggregateOrders(ctx, match, 1, 0, false)
}

func (s *Store) ListOrdersByStatus(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	match := bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(statuses)}}}}
	return s.aggregateOrders(ctx, match, 1, 0, false)
}

func (s *Store) ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	match := bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: from.UTC()}, {Key: "$lt", Value: to.UTC()}}}}
	return s.aggregateOrders(ctx, match, 1, 0, false)
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return s.aggregateOrders(ctx, bson.D{}, -1, limit, true)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, ids []string, status models.OrderStatus, from []models.OrderStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := bson.D{
		{Key: "order_id", Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(from)}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(status)},
		{Key: "updated_at", Value: s.now()},
	}}}
	result, err := s.orderCollection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	return int(result.ModifiedCount), nil
}

// aggregateOrders matches orders, sorts them by created_at in the given
// direction and joins their items, plus the table when withTable is set.
func (s *Store) aggregateOrders(ctx context.Context, match bson.D, direction, limit int, withTable bool) ([]models.Order, error) {
	matchStage := bson.D{{Key: "$match", Value: match}}
	sortStage := bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: direction}, {Key: "_id", Value: direction}}}}
	lookupItemsStage := bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: s.orderItemCollection.Name()},
		{Key: "localField", Value: "order_id"},
		{Key: "foreignField", Value: "order_id"},
		{Key: "as", Value: "order_items"},
	}}}

	pipeline := mongo.Pipeline{matchStage, sortStage}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline, lookupItemsStage)
	if withTable {
		lookupTableStage := bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.tableCollection.Name()},
			{Key: "localField", Value: "table_id"},
			{Key: "foreignField", Value: "table_id"},
			{Key: "as", Value: "table"},
		}}}
		unwindTableStage := bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$table"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}}
		pipeline = append(pipeline, lookupTableStage, unwindTableStage)
	}

	cursor, err := s.orderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}
	var views []orderView
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	out := make([]models.Order, 0, len(views))
	for _, v := range views {
		out = append(out, v.model())
	}
	return out, nil
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
