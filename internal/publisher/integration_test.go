//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/testutil"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) publishAndConsume(cfg Config, event *domain.BookmarkEvent) *amqp.Delivery {
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.Require().NoError(pub.Publish(s.ctx, event))

	return s.consumeMessage(cfg)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishCreated() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-created",
		RoutingKey: "test-routing-key-created",
		QueueName:  "test-queue-created",
	}

	created := time.Date(2023, 11, 14, 8, 30, 0, 0, time.UTC)
	msg := s.publishAndConsume(cfg, &domain.BookmarkEvent{
		Action:     domain.ActionCreated,
		RunID:      uuid.New(),
		SourceID:   "pinboard",
		ListID:     "list-1",
		BookmarkID: "bm-1",
		Item: domain.Item{
			Title:     "Example",
			URL:       "https://example.com/a",
			CreatedAt: testutil.Ptr(created),
		},
	})
	s.Require().NotNil(msg)

	var received BookmarkMessage
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("bookmark.created", received.Action)
	s.Equal("bm-1", received.BookmarkID)
	s.Equal("https://example.com/a", received.Item.URL)
	s.Require().NotNil(received.Item.CreatedAt)
	s.True(created.Equal(*received.Item.CreatedAt))
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishLinked() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-linked",
		RoutingKey: "test-routing-key-linked",
		QueueName:  "test-queue-linked",
	}

	msg := s.publishAndConsume(cfg, &domain.BookmarkEvent{
		Action:     domain.ActionLinked,
		RunID:      uuid.New(),
		SourceID:   "hn",
		ListID:     "list-2",
		BookmarkID: "bm-2",
		Item:       domain.Item{Title: "Show HN", URL: "https://news.ycombinator.com/item?id=1"},
	})
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(domain.ActionLinked, msg.Type)

	var received BookmarkMessage
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("hn", received.SourceID)
	s.Equal("list-2", received.ListID)
	s.Nil(received.Item.CreatedAt)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	msg := s.publishAndConsume(cfg, &domain.BookmarkEvent{
		Action:     domain.ActionCreated,
		RunID:      uuid.New(),
		SourceID:   "github",
		BookmarkID: "bm-3",
		Item:       domain.Item{Title: "golang/go", URL: "https://github.com/golang/go"},
	})
	s.Require().NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}