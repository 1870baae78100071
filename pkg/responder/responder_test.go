package responder

import (
	"context"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []amqp.Publishing
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestResponder_PublishesOnePerTask(t *testing.T) {
	cp := NewControlPlane(8)
	pub := &fakePublisher{}
	r := New(cp, pub)

	cp.Accept(&Task{ID: 1})
	cp.Publish(&Result{TaskID: 1, ReplyTo: "q1", Payload: []byte(`{"result":1}`)})
	cp.Retire(1)
	cp.RequestStop(&StopSentinel{Reason: "test"})

	r.Run(context.Background())

	assert.Equal(t, 1, pub.count())
}

func TestResponder_ForceStopDiscardsAlreadyQueuedResults(t *testing.T) {
	cp := NewControlPlane(8)
	pub := &fakePublisher{}
	r := New(cp, pub)

	cp.Accept(&Task{ID: 1})
	cp.Publish(&Result{TaskID: 1, ReplyTo: "q1", Payload: []byte(`{}`)})
	cp.RequestStop(&StopSentinel{Reason: "force", Force: true})

	r.Run(context.Background())

	assert.Equal(t, 0, pub.count())
	require.Equal(t, 1, cp.InFlightCount())
}

func TestResponder_NonForceStopDrainsQueue(t *testing.T) {
	cp := NewControlPlane(8)
	pub := &fakePublisher{}
	r := New(cp, pub)

	cp.Accept(&Task{ID: 1})
	cp.Accept(&Task{ID: 2})
	cp.Publish(&Result{TaskID: 1, ReplyTo: "q1", Payload: []byte(`{}`)})
	cp.Publish(&Result{TaskID: 2, ReplyTo: "q2", Payload: []byte(`{}`)})
	cp.Retire(1)
	cp.Retire(2)
	cp.RequestStop(&StopSentinel{Reason: "drain"})

	r.Run(context.Background())

	assert.Equal(t, 2, pub.count())
}

func TestControlPlane_AcceptRefusesAfterStop(t *testing.T) {
	cp := NewControlPlane(1)
	cp.RequestStop(&StopSentinel{Reason: "shutting down"})

	accepted := cp.Accept(&Task{ID: 1})
	assert.False(t, accepted)
	assert.True(t, cp.IsStopping())
}

func TestControlPlane_RequestStopIsIdempotent(t *testing.T) {
	cp := NewControlPlane(1)
	assert.True(t, cp.RequestStop(&StopSentinel{Reason: "first"}))
	assert.False(t, cp.RequestStop(&StopSentinel{Reason: "second"}))
}
