package responder

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/gnosek/mtrpc/pkg/log"
	"github.com/gnosek/mtrpc/pkg/metrics"
)

// Publisher is the narrow AMQP surface the Responder needs, satisfied by
// *amqptransport.Connection in production and by a fake in tests.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Responder drains the ControlPlane's Result FIFO and publishes each
// result to its reply queue, applying the draining policy: on a
// non-force stop, keep publishing already-queued results until the
// FIFO is empty; on a force stop, exit immediately and log whatever was
// left unpublished as a discrepancy.
type Responder struct {
	cp        *ControlPlane
	publisher Publisher
	logger    zerolog.Logger
}

// New creates a Responder bound to cp and publisher.
func New(cp *ControlPlane, publisher Publisher) *Responder {
	return &Responder{
		cp:        cp,
		publisher: publisher,
		logger:    log.WithComponent("responder"),
	}
}

// Run drains results until a stop is signalled, applying the draining
// policy. It returns once shutdown is complete. The stop channel is
// checked ahead of the Result FIFO on every iteration so a force stop
// takes effect even when results are already buffered.
func (r *Responder) Run(ctx context.Context) {
	for {
		select {
		case sentinel := <-r.cp.StopSignal():
			r.shutdown(sentinel)
			return
		default:
		}

		select {
		case sentinel := <-r.cp.StopSignal():
			r.shutdown(sentinel)
			return
		case result, ok := <-r.cp.Results():
			if !ok {
				return
			}
			r.deliver(ctx, result)
		}
	}
}

func (r *Responder) deliver(ctx context.Context, result *Result) {
	metrics.ResponderQueueDepth.Set(float64(len(r.cp.Results())))

	err := r.publisher.Publish(ctx, result.Exchange, result.ReplyTo, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: result.CorrelationID,
		Body:          result.Payload,
	})
	if err != nil {
		r.logger.Error().Err(err).Uint64("task_id", result.TaskID).Msg("failed to publish result")
		metrics.TasksCompletedTotal.WithLabelValues("publish_error").Inc()
		return
	}
}

// shutdown implements the draining policy once a stop has been
// signalled: a force stop discards whatever is still buffered and
// exits immediately; a graceful stop keeps delivering whatever was
// already queued until the FIFO runs dry.
func (r *Responder) shutdown(sentinel *StopSentinel) {
	if sentinel.Force {
		if remaining := len(r.cp.Results()); remaining > 0 {
			r.logger.Warn().
				Int("discarded_results", remaining).
				Str("reason", sentinel.Reason).
				Msg("force stop: discarding buffered results")
		}
		r.logDiscrepancy(sentinel)
		return
	}

	for {
		select {
		case result, ok := <-r.cp.Results():
			if !ok {
				r.logDiscrepancy(sentinel)
				return
			}
			r.deliver(context.Background(), result)
		default:
			r.logDiscrepancy(sentinel)
			return
		}
	}
}

// logDiscrepancy compares the ControlPlane's in-flight count against
// zero once draining is done: anything still recorded means a worker
// never published a result before shutdown completed, which the
// responder surfaces as a closure discrepancy.
func (r *Responder) logDiscrepancy(sentinel *StopSentinel) {
	if n := r.cp.InFlightCount(); n > 0 {
		r.logger.Warn().
			Int("unresolved_tasks", n).
			Str("severity", sentinel.Severity).
			Msg("shutdown completed with unresolved in-flight tasks")
	} else {
		r.logger.Info().Str("reason", sentinel.Reason).Msg("responder shut down cleanly")
	}
}
