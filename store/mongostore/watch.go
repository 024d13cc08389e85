package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-restaurant-pos/notify"

	"go.mongodb.org/mongo-driver/mongo"
)

var errStreamClosed = errors.New("change stream closed")

// Watch forwards change-stream events on the table and order collections to
// deliver until ctx is done. Writes made by other instances reach local
// subscribers this way.
func (s *Store) Watch(ctx context.Context, deliver func(topic string), log *slog.Logger) error {
	streams := map[string]*mongo.Collection{
		notify.TopicTables: s.tableCollection,
		notify.TopicOrders: s.orderCollection,
	}
	for topic, coll := range streams {
		stream, err := coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			return fmt.Errorf("watch %s: %w", coll.Name(), err)
		}
		go func(topic string, stream *mongo.ChangeStream) {
			defer stream.Close(context.Background())
			for stream.Next(ctx) {
				deliver(topic)
			}
			if err := stream.Err(); err != nil && ctx.Err() == nil {
				log.Warn("change_stream_stopped", "topic", topic, "error", err)
				return
			}
			if ctx.Err() == nil {
				log.Warn("change_stream_stopped", "topic", topic, "error", errStreamClosed)
			}
		}(topic, stream)
	}
	return nil
}
