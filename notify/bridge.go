package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "pos.changes"

// Transport is the part of broker.Client the bridge needs.
type Transport interface {
	DeclareFanout(exchange string) error
	Publish(ctx context.Context, exchange, key string, body []byte, contentType string) error
	ConsumeFanout(exchange string) (<-chan amqp.Delivery, error)
}

type wireEvent struct {
	Topic  string    `json:"topic"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Bridge mirrors hub topics through a fanout exchange so every instance
// refreshes its views. Messages from this instance are ignored on the way in.
type Bridge struct {
	hub       *Hub
	transport Transport
	exchange  string
	origin    string
	log       *slog.Logger
	outbox    chan string
}

func NewBridge(hub *Hub, transport Transport, exchange string, log *slog.Logger) *Bridge {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Bridge{
		hub:       hub,
		transport: transport,
		exchange:  exchange,
		origin:    uuid.NewString(),
		log:       log,
		outbox:    make(chan string, 64),
	}
}

func (b *Bridge) Origin() string { return b.origin }

// Start wires the bridge into the hub and runs until ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.transport.DeclareFanout(b.exchange); err != nil {
		return err
	}
	deliveries, err := b.transport.ConsumeFanout(b.exchange)
	if err != nil {
		return err
	}
	b.hub.SetRelay(b.enqueue)
	go b.publishLoop(ctx)
	go b.consumeLoop(ctx, deliveries)
	return nil
}

func (b *Bridge) enqueue(topic string) {
	select {
	case b.outbox <- topic:
	default:
		b.log.Warn("notification_dropped", "topic", topic)
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	defer b.hub.SetRelay(nil)
	for {
		select {
		case <-ctx.Done():
			return
		case topic := <-b.outbox:
			body, _ := json.Marshal(wireEvent{Topic: topic, Origin: b.origin, At: time.Now().UTC()})
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := b.transport.Publish(pctx, b.exchange, "", body, "application/json"); err != nil {
				b.log.Warn("notification_publish_failed", "topic", topic, "error", err)
			}
			cancel()
		}
	}
}

func (b *Bridge) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				b.log.Warn("notification_stream_closed", "exchange", b.exchange)
				return
			}
			var ev wireEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				b.log.Warn("notification_malformed", "error", err)
				continue
			}
			if ev.Origin == b.origin || ev.Topic == "" {
				continue
			}
			b.hub.Deliver(ev.Topic)
		}
	}
}
