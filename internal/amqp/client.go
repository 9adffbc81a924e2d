// Package amqp carries backup work between the API process and the backup
// worker over a durable direct exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordChange enqueues a single-record backup capture.
func (c *Client) PublishRecordChange(ctx context.Context, id, kind, op string) error {
	body, err := encodeEnvelope(TypeRecordChange, NewRecordChangeMessage(id, kind, op))
	if err != nil {
		return err
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published record change message",
		"id", id,
		"kind", kind,
		"op", op,
		"queue", c.queueName)
	return nil
}

// PublishBackupRequest enqueues a full snapshot request.
func (c *Client) PublishBackupRequest(ctx context.Context, requestID string) error {
	body, err := encodeEnvelope(TypeBackupRequest, NewBackupRequestMessage(requestID))
	if err != nil {
		return err
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published backup request", "request_id", requestID, "queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Handlers dispatches consumed messages by type.
type Handlers struct {
	RecordChange  func(ctx context.Context, msg *RecordChangeMessage) error
	BackupRequest func(ctx context.Context, msg *BackupRequestMessage) error
}

// Consume processes queue messages until ctx is cancelled. Malformed
// messages are rejected without requeue; handler failures are requeued.
func (c *Client) Consume(ctx context.Context, h Handlers) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (manual ack below)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming backup messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if err := c.dispatch(ctx, h, delivery.Body); err != nil {
				if isDecodeError(err) {
					slog.ErrorContext(ctx, "Rejecting malformed message", "error", err)
					delivery.Nack(false, false)
					continue
				}
				slog.ErrorContext(ctx, "Handler failed, requeueing", "error", err)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

func (c *Client) dispatch(ctx context.Context, h Handlers, body []byte) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		return decodeError{err}
	}

	switch env.Type {
	case TypeRecordChange:
		var msg RecordChangeMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return decodeError{fmt.Errorf("unmarshal record change: %w", err)}
		}
		if h.RecordChange == nil {
			return nil
		}
		return h.RecordChange(ctx, &msg)
	case TypeBackupRequest:
		var msg BackupRequestMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return decodeError{fmt.Errorf("unmarshal backup request: %w", err)}
		}
		if h.BackupRequest == nil {
			return nil
		}
		return h.BackupRequest(ctx, &msg)
	default:
		return decodeError{fmt.Errorf("unknown message type %q", env.Type)}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
