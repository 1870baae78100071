package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gnosek/mtrpc/pkg/amqptransport"
	"github.com/gnosek/mtrpc/pkg/protocol"
)

// Client publishes requests to one exchange/routing-key and correlates
// their replies on a private, exclusive reply queue.
type Client struct {
	conn       *amqptransport.Connection
	exchange   string
	routingKey string
	replyQueue string

	mu      sync.Mutex
	pending map[string]chan *protocol.Response
}

// Dial declares the client's reply queue and starts consuming it. exchange
// and routingKey identify where requests are published; the manager's
// binding for that exchange/routing-key pair decides which procedures are
// reachable from this client.
func Dial(ctx context.Context, conn *amqptransport.Connection, exchange, routingKey string) (*Client, error) {
	replyQueue, err := conn.DeclareReplyQueue()
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}

	deliveries, err := conn.Consume(replyQueue, "mtrpc-client-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	c := &Client{
		conn:       conn,
		exchange:   exchange,
		routingKey: routingKey,
		replyQueue: replyQueue,
		pending:    map[string]chan *protocol.Response{},
	}

	go c.readReplies(deliveries)

	return c, nil
}

func (c *Client) readReplies(deliveries <-chan amqp.Delivery) {
	for msg := range deliveries {
		var resp protocol.Response
		if err := json.Unmarshal(msg.Body, &resp); err != nil {
			_ = msg.Ack(false)
			continue
		}

		var corrID string
		_ = json.Unmarshal(resp.ID, &corrID)

		c.mu.Lock()
		ch, ok := c.pending[msg.CorrelationId]
		if ok {
			delete(c.pending, msg.CorrelationId)
		}
		c.mu.Unlock()

		if ok {
			ch <- &resp
		}
		_ = msg.Ack(false)
	}
}

// Call publishes method(params) with kwparams, blocking until a reply
// arrives or ctx is done. params and kwparams may be nil.
func (c *Client) Call(ctx context.Context, method string, params []any, kwparams map[string]any) (json.RawMessage, error) {
	corrID := uuid.NewString()

	if params == nil {
		params = []any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	var kwJSON json.RawMessage
	if kwparams != nil {
		kwJSON, err = json.Marshal(kwparams)
		if err != nil {
			return nil, fmt.Errorf("marshal kwparams: %w", err)
		}
	}

	idJSON, err := json.Marshal(corrID)
	if err != nil {
		return nil, err
	}
	req := protocol.Request{ID: idJSON, Method: method, Params: paramsJSON, KwParams: kwJSON}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	replyCh := make(chan *protocol.Response, 1)
	c.mu.Lock()
	c.pending[corrID] = replyCh
	c.mu.Unlock()

	err = c.conn.Publish(ctx, c.exchange, c.routingKey, amqp.Publishing{
		Body:          body,
		ReplyTo:       c.replyQueue,
		CorrelationId: corrID,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return nil, fmt.Errorf("publish request: %w", err)
	}

	select {
	case resp := <-replyCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}
