// Package event publishes lifecycle events to RabbitMQ for consumers that
// render cluster listings and proof feeds.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "proof-manager.events"

// Routing keys for the events this service emits.
const (
	ClusterUpdated = "cluster.updated"
	ClusterCreated = "cluster.created"
	ProofProved    = "proof.proved"
)

func NewPublisher(logger *slog.Logger, url string) (*Publisher, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %v", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %v", err)
	}

	err = channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %v", err)
	}

	return &Publisher{
		logger:     logger,
		connection: connection,
		channel:    channel,
	}, nil
}

type Publisher struct {
	logger     *slog.Logger
	connection *amqp.Connection
	channel    *amqp.Channel
}

// Publish emits a JSON event. Failures are logged, never propagated; events
// are advisory and must not fail the request that triggered them.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal event", "routingKey", routingKey, "error", err)
		return
	}

	err = p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event", "routingKey", routingKey, "error", err)
	}
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.connection.Close()
}
