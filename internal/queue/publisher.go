package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const auditQueue = "audit.recorded"

// Publisher sends audit events to RabbitMQ. A nil Publisher (no broker
// configured) is valid and publishes nothing; publish failures are logged
// and returned but never interrupt the request flow.
type Publisher struct {
	url string
}

// NewPublisher returns nil when url is empty.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishAuditRecorded declares the durable queue and publishes one
// persistent JSON message. The connection is per-publish: audit volume is
// bounded by request volume and a broken broker must never hold state that
// poisons later requests.
func (p *Publisher) PublishAuditRecorded(ctx context.Context, event AuditRecordedEvent) error {
	if p == nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		slog.Error("amqp dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("amqp channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(auditQueue, true, false, false, false, nil); err != nil {
		slog.Error("amqp queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", auditQueue, false, false, pub); err != nil {
		slog.Error("amqp publish failed", "error", err)
		return err
	}
	return nil
}
