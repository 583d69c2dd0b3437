package helpers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpQueue is a channel bound to one durable queue.
type amqpQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

// dialQueue opens a channel and declares the durable queue both sides use.
func dialQueue(url, queue string) (*amqpQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	q := &amqpQueue{conn: conn, Queue: queue}
	if q.ch, err = conn.Channel(); err != nil {
		q.close()
		return nil, err
	}
	// durable, not auto-deleted, shared, wait for the broker
	if _, err = q.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		q.close()
		return nil, err
	}
	return q, nil
}

func (q *amqpQueue) close() {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}

// RabbitPublisher enqueues JSON jobs on the e-mail queue.
type RabbitPublisher struct {
	*amqpQueue
	AppID string
}

func NewRabbitPublisher(url, queue, appID string) (*RabbitPublisher, error) {
	q, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{amqpQueue: q, AppID: appID}, nil
}

func (p *RabbitPublisher) Close() {
	if p != nil && p.amqpQueue != nil {
		p.close()
	}
}

// PublishJSON publishes body as a persistent message through the default
// exchange. Every message gets a fresh id the worker logs against.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        p.AppID,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// RabbitConsumer reads the same durable queue with manual acks.
type RabbitConsumer struct {
	*amqpQueue
}

func NewRabbitConsumer(url, queue string, prefetch int) (*RabbitConsumer, error) {
	q, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	if err := q.ch.Qos(prefetch, 0, false); err != nil {
		q.close()
		return nil, err
	}
	return &RabbitConsumer{amqpQueue: q}, nil
}

// Deliveries starts consuming; the channel closes when the connection does.
func (c *RabbitConsumer) Deliveries(consumer string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.Queue, consumer, false, false, false, false, nil)
}

func (c *RabbitConsumer) Close() {
	if c != nil && c.amqpQueue != nil {
		c.close()
	}
}
