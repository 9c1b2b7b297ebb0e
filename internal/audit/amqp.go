package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const (
	DefaultExchange = "skillsync.events"
	RoutingKey      = "analysis.completed"
)

// Event is the message published for every completed analysis.
type Event struct {
	ID                   string    `json:"id"`
	Filename             string    `json:"filename"`
	OverallRating        float64   `json:"overall_rating"`
	RecommendationsCount int       `json:"recommendations_count"`
	Timestamp            time.Time `json:"timestamp"`
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes an Event to a topic exchange.
type AMQPSink struct {
	conn        *amqp.Connection
	openChannel func() (publisher, error)
	exchange    string
}

// NewAMQPSink connects to the broker and declares a durable topic exchange.
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPSink{
		conn: conn,
		openChannel: func() (publisher, error) {
			return conn.Channel()
		},
		exchange: exchange,
	}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

// Write opens a channel per message; channels are not safe for concurrent publishing.
func (s *AMQPSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Event{
		ID:                   rec.ID.String(),
		Filename:             rec.Filename,
		OverallRating:        rec.Evaluation.OverallRating,
		RecommendationsCount: rec.RecommendationsCount,
		Timestamp:            rec.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := s.openChannel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(s.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID.String(),
		Timestamp:    rec.Timestamp,
		Body:         body,
	})
}

func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
