package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"syara/config"
)

// ErrMalformed marks a message body that can never be processed. Handlers wrap
// it to tell the consumer to dead-letter the message instead of requeueing it
// forever.
var ErrMalformed = errors.New("malformed message")

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
}

func NewConsumer(cfg config.RabbitMQConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One message in flight at a time: a batch finishes its whole
	// describe/embed/upsert pipeline before the next is delivered.
	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		config:  cfg,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ConsumeQueue declares the durable queue and its dead-letter companion, then
// processes deliveries one at a time. A message is acked only after the
// handler returns nil; a handler error requeues it, unless the error wraps
// ErrMalformed, in which case the body is dead-lettered and acked.
func (c *Consumer) ConsumeQueue(queueName string, handler func([]byte) error) error {
	// Declare queues (idempotent)
	for _, name := range []string{queueName, c.config.DeadLetterQueue} {
		_, err := c.channel.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	msgs, err := c.channel.Consume(
		queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("✓ Started consuming from queue: %s", queueName)

	for msg := range msgs {
		if err := handler(msg.Body); err != nil {
			if errors.Is(err, ErrMalformed) {
				log.Printf("✗ Dead-lettering message %s: %v", msg.MessageId, err)
				if dlErr := c.deadLetter(msg); dlErr != nil {
					// Keep the message until the dead-letter queue is reachable.
					log.Printf("✗ Failed to dead-letter message: %v", dlErr)
					msg.Nack(false, true)
					continue
				}
				msg.Ack(false)
				continue
			}
			log.Printf("✗ Error processing message: %v", err)
			// Reject and requeue
			msg.Nack(false, true)
		} else {
			// Acknowledge
			msg.Ack(false)
		}
	}

	return nil
}

func (c *Consumer) deadLetter(msg amqp.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return c.channel.PublishWithContext(ctx,
		"",                        // exchange
		c.config.DeadLetterQueue,  // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageId,
			Timestamp:    time.Now(),
			Body:         msg.Body,
		},
	)
}
