package manager

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/gnosek/mtrpc/pkg/amqptransport"
	"github.com/gnosek/mtrpc/pkg/log"
	"github.com/gnosek/mtrpc/pkg/methodtree"
	"github.com/gnosek/mtrpc/pkg/metrics"
	"github.com/gnosek/mtrpc/pkg/mtrpcconfig"
	"github.com/gnosek/mtrpc/pkg/responder"
	"github.com/gnosek/mtrpc/pkg/worker"
)

type delivery struct {
	msg     amqp.Delivery
	binding mtrpcconfig.Binding
	queue   string
}

// Manager owns the inbound connection and consume loop.
type Manager struct {
	tree             *methodtree.Tree
	cp               *responder.ControlPlane
	conn             *amqptransport.Connection
	bindings         []mtrpcconfig.Binding
	responseExchange string
	consumerTag      string

	taskID atomic.Uint64
	logger zerolog.Logger

	wakeR *os.File
	wakeW *os.File
}

// New creates a Manager. responseExchange is the exchange the responder
// publishes results to; the manager includes it on every spawned
// worker.Job so results route back without the worker needing its own
// configuration lookup.
func New(tree *methodtree.Tree, cp *responder.ControlPlane, conn *amqptransport.Connection, bindings []mtrpcconfig.Binding, responseExchange string) (*Manager, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("manager wake pipe: %w", err)
	}

	return &Manager{
		tree:             tree,
		cp:               cp,
		conn:             conn,
		bindings:         bindings,
		responseExchange: responseExchange,
		consumerTag:      "mtrpc-manager-" + uuid.NewString(),
		logger:           log.WithComponent("manager"),
		wakeR:            r,
		wakeW:            w,
	}, nil
}

// declare declares the bound queue and consumer for every binding,
// returning the per-binding delivery channels merged into one. The
// bindings' exchanges must already have been declared by the caller.
func (m *Manager) declare() (<-chan delivery, error) {
	out := make(chan delivery)

	for _, b := range m.bindings {
		queueName, err := m.conn.DeclareBoundQueue(b.Exchange, b.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("declare binding %s/%s: %w", b.Exchange, b.RoutingKey, err)
		}

		deliveries, err := m.conn.Consume(queueName, m.consumerTag)
		if err != nil {
			return nil, fmt.Errorf("consume %s: %w", queueName, err)
		}

		b := b
		queueName := queueName
		go func() {
			for msg := range deliveries {
				out <- delivery{msg: msg, binding: b, queue: queueName}
			}
		}()
	}

	return out, nil
}

// Run declares bindings and dispatches deliveries to worker goroutines
// until ctx is cancelled or Stop wakes the loop.
func (m *Manager) Run(ctx context.Context) error {
	deliveries, err := m.declare()
	if err != nil {
		return err
	}

	wake := make(chan struct{}, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := m.wakeR.Read(buf); err != nil {
				return
			}
			wake <- struct{}{}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
			return nil
		case d := <-deliveries:
			m.dispatch(ctx, d)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, d delivery) {
	taskID := m.taskID.Add(1)

	metrics.TasksReceivedTotal.WithLabelValues(d.binding.Exchange, d.binding.RoutingKey).Inc()
	metrics.InFlightTasks.Inc()

	task := &responder.Task{
		ID:            taskID,
		Exchange:      m.responseExchange,
		ReplyTo:       d.msg.ReplyTo,
		CorrelationID: d.msg.CorrelationId,
	}

	if !m.cp.Accept(task) {
		m.logger.Warn().Uint64("task_id", taskID).Msg("rejecting task, manager is stopping")
		_ = d.msg.Nack(false, true)
		metrics.InFlightTasks.Dec()
		return
	}

	if err := d.msg.Ack(false); err != nil {
		m.logger.Error().Err(err).Uint64("task_id", taskID).Msg("failed to ack delivery")
	}

	job := worker.Job{
		Tree:                 m.tree,
		TaskID:               taskID,
		RequestBody:          d.msg.Body,
		Exchange:             d.msg.Exchange,
		Queue:                d.queue,
		BindingRK:            d.binding.RoutingKey,
		MsgRK:                d.msg.RoutingKey,
		DeliveryInfo:         map[string]string{"exchange": d.msg.Exchange, "routing_key": d.msg.RoutingKey},
		ReplyTo:              d.msg.ReplyTo,
		CorrelationID:        d.msg.CorrelationId,
		ResponseExchange:     m.responseExchange,
		AccessKeyPattern:     d.binding.AccessKeyPattern,
		AccessKeyholePattern: d.binding.AccessKeyholePattern,
		ControlPlane:         m.cp,
	}

	go func() {
		defer metrics.InFlightTasks.Dec()
		worker.Process(ctx, job)
	}()
}

// Stop requests a cooperative shutdown: the ControlPlane stops admitting
// new tasks, a stop sentinel reaches the responder, and the wake pipe
// unblocks Run's dispatch loop.
func (m *Manager) Stop(sentinel *responder.StopSentinel) {
	m.cp.RequestStop(sentinel)
	_, _ = m.wakeW.Write([]byte{1})
}

// Close releases the manager's connection and wake pipe.
func (m *Manager) Close() error {
	_ = m.wakeR.Close()
	_ = m.wakeW.Close()
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
