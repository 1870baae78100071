package amqptransport

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection pairs one AMQP connection with the single channel mtrpc's
// manager and responder each use. Reconnects replace both underneath the
// caller; callers always go through Channel() rather than caching the
// *amqp.Channel themselves.
type Connection struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial opens a connection and channel, retrying through r. Prefetch, when
// non-zero, sets the channel's QoS (amqp_params.prefetch in config).
func Dial(ctx context.Context, url string, prefetch int, r *Retrier) (*Connection, error) {
	c := &Connection{url: url}

	err := r.Do(ctx, func() error {
		conn, err := amqp.Dial(url)
		if err != nil {
			return fmt.Errorf("amqp dial: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("amqp channel: %w", err)
		}

		if prefetch > 0 {
			if err := ch.Qos(prefetch, 0, false); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("amqp qos: %w", err)
			}
		}

		c.conn = conn
		c.channel = ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Channel returns the live channel. It is only valid until the next
// Reconnect.
func (c *Connection) Channel() *amqp.Channel { return c.channel }

// Reconnect tears down the current connection/channel (best effort) and
// dials a fresh pair through r, replacing both in place.
func (c *Connection) Reconnect(ctx context.Context, prefetch int, r *Retrier) error {
	c.closeQuietly()

	fresh, err := Dial(ctx, c.url, prefetch, r)
	if err != nil {
		return err
	}
	c.conn = fresh.conn
	c.channel = fresh.channel
	return nil
}

func (c *Connection) closeQuietly() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Close releases the connection and channel.
func (c *Connection) Close() error {
	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// DeclareExchange declares exchange with the given kind (config's
// exchange_types), durable and surviving broker restarts.
func (c *Connection) DeclareExchange(name, kind string) error {
	return c.channel.ExchangeDeclare(name, kind, true, false, false, false, nil)
}

// DeclareBoundQueue declares the shared queue for a binding and binds it
// to exchange under routingKey, returning the deterministic queue name
// (QueueName) it was declared under.
func (c *Connection) DeclareBoundQueue(exchange, routingKey string) (string, error) {
	name := QueueName(exchange, routingKey)
	if _, err := c.channel.QueueDeclare(name, true, true, false, false, nil); err != nil {
		return "", fmt.Errorf("queue declare %q: %w", name, err)
	}
	if err := c.channel.QueueBind(name, routingKey, exchange, false, nil); err != nil {
		return "", fmt.Errorf("queue bind %q to %q/%q: %w", name, exchange, routingKey, err)
	}
	return name, nil
}

// DeclareReplyQueue declares an exclusive, auto-delete, server-named
// queue for correlating a single client's responses.
func (c *Connection) DeclareReplyQueue() (string, error) {
	q, err := c.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("reply queue declare: %w", err)
	}
	return q.Name, nil
}

// Consume starts consuming deliveries from queue.
func (c *Connection) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return c.channel.Consume(queue, consumerTag, false, false, false, false, nil)
}

// Publish sends a persistent message to exchange under routingKey.
func (c *Connection) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	msg.DeliveryMode = amqp.Persistent
	return c.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}
