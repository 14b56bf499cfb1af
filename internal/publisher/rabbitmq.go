// Package publisher announces synced bookmarks on a RabbitMQ exchange.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"karakeep_sync/internal/domain"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// NewRabbitMQ connects and declares a durable direct exchange with one
// durable queue bound to it.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// BookmarkMessage is the JSON body of every published message.
type BookmarkMessage struct {
	Action     string      `json:"action"` // "bookmark.created" or "bookmark.linked"
	RunID      string      `json:"run_id"`
	SourceID   string      `json:"source_id"`
	ListID     string      `json:"list_id"`
	BookmarkID string      `json:"bookmark_id"`
	Item       domain.Item `json:"item"`
	Timestamp  time.Time   `json:"timestamp"`
}

func newPublishing(event *domain.BookmarkEvent) (amqp.Publishing, error) {
	msg := BookmarkMessage{
		Action:     event.Action,
		RunID:      event.RunID.String(),
		SourceID:   event.SourceID,
		ListID:     event.ListID,
		BookmarkID: event.BookmarkID,
		Item:       event.Item,
		Timestamp:  event.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         event.Action,
		MessageId:    event.RunID.String() + "/" + event.BookmarkID,
		Body:         body,
		Timestamp:    msg.Timestamp,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, event *domain.BookmarkEvent) error {
	publishing, err := newPublishing(event)
	if err != nil {
		return err
	}

	err = r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, publishing)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published bookmark event",
		"bookmark_id", event.BookmarkID,
		"action", event.Action,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
