package rpcclient

import (
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosek/mtrpc/pkg/protocol"
)

type fakeAcker struct{}

func (fakeAcker) Ack(tag uint64, multiple bool) error         { return nil }
func (fakeAcker) Nack(tag uint64, multiple, requeue bool) error { return nil }
func (fakeAcker) Reject(tag uint64, requeue bool) error        { return nil }

func newTestClient() *Client {
	return &Client{pending: map[string]chan *protocol.Response{}}
}

func TestReadReplies_CorrelatesByID(t *testing.T) {
	c := newTestClient()
	ch := make(chan *protocol.Response, 1)
	c.mu.Lock()
	c.pending["abc"] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(protocol.Response{ID: json.RawMessage(`"abc"`), Result: json.RawMessage("5")})
	require.NoError(t, err)

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: payload, CorrelationId: "abc", Acknowledger: fakeAcker{}}
	close(deliveries)

	c.readReplies(deliveries)

	select {
	case resp := <-ch:
		assert.JSONEq(t, "5", string(resp.Result))
	default:
		t.Fatal("expected a reply delivered to the waiting channel")
	}
}

func TestReadReplies_UnmatchedCorrelationIsDroppedSilently(t *testing.T) {
	c := newTestClient()

	payload, err := json.Marshal(protocol.Response{ID: json.RawMessage(`"nobody-waiting"`), Result: json.RawMessage("1")})
	require.NoError(t, err)

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: payload, CorrelationId: "nobody-waiting", Acknowledger: fakeAcker{}}
	close(deliveries)

	assert.NotPanics(t, func() { c.readReplies(deliveries) })
	assert.Empty(t, c.pending)
}

func TestReadReplies_MalformedBodyIsSkipped(t *testing.T) {
	c := newTestClient()
	ch := make(chan *protocol.Response, 1)
	c.mu.Lock()
	c.pending["abc"] = ch
	c.mu.Unlock()

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: []byte("not json"), CorrelationId: "abc", Acknowledger: fakeAcker{}}
	close(deliveries)

	c.readReplies(deliveries)

	select {
	case <-ch:
		t.Fatal("malformed delivery should not have produced a reply")
	default:
	}
}
