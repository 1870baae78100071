package worker

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gnosek/mtrpc/pkg/access"
	"github.com/gnosek/mtrpc/pkg/log"
	"github.com/gnosek/mtrpc/pkg/methodtree"
	"github.com/gnosek/mtrpc/pkg/metrics"
	"github.com/gnosek/mtrpc/pkg/protocol"
	"github.com/gnosek/mtrpc/pkg/responder"
)

// Job carries everything one task needs: the immutable tree to resolve
// against, the raw request body the manager read off the wire, the
// access-context fields the manager already knows from the delivery and
// its binding, and where the result has to go.
type Job struct {
	Tree *methodtree.Tree

	TaskID      uint64
	RequestBody []byte

	Exchange     string
	Queue        string
	BindingRK    string
	MsgRK        string
	DeliveryInfo map[string]string
	ReplyTo      string

	CorrelationID        string
	ResponseExchange     string
	AccessKeyPattern     string
	AccessKeyholePattern string

	ControlPlane *responder.ControlPlane
}

// Process runs the decode -> resolve -> invoke -> classify -> encode ->
// deliver pipeline for one task. It always retires the task from the
// ControlPlane's in-flight map before returning, whether or not a reply
// was actually published.
func Process(ctx context.Context, job Job) {
	defer job.ControlPlane.Retire(job.TaskID)

	logger := log.WithTaskID(job.TaskID)

	req, err := protocol.DecodeRequest(job.RequestBody)
	if err != nil {
		id := protocol.ExtractID(job.RequestBody)
		if id == nil {
			// Deserialization failed before req.ID was even bound (or this
			// is a bare notification): fall back to the reply queue so the
			// failure still reaches exactly one Result on the FIFO.
			id, _ = json.Marshal(job.ReplyTo)
		}
		logger.Warn().Err(err).Msg("request failed to decode")
		job.reply(id, protocol.Classify(err))
		return
	}

	logger = log.Logger.With().Uint64("task_id", job.TaskID).Str("method", req.Method).Logger()

	node, ok := job.Tree.Lookup(req.Method)
	if !ok {
		job.reply(req.ID, protocol.Classify(protocol.ErrNotFound))
		return
	}
	proc, ok := node.(*methodtree.Procedure)
	if !ok {
		job.reply(req.ID, protocol.Classify(protocol.ErrNotFound))
		return
	}

	parentmod := ""
	if idx := strings.LastIndex(proc.FullName, "."); idx >= 0 {
		parentmod = proc.FullName[:idx]
	}

	accessCtx := access.Context{
		Exchange:      job.Exchange,
		Queue:         job.Queue,
		RK:            job.BindingRK,
		MsgRK:         job.MsgRK,
		DeliveryInfo:  job.DeliveryInfo,
		ReplyTo:       job.ReplyTo,
		FullName:      proc.FullName,
		LocalName:     proc.LocalName,
		ParentmodName: parentmod,
		Doc:           proc.Doc,
		Tags:          proc.Tags,
		Type:          "procedure",
	}

	admitted, err := access.Admit(accessCtx, job.AccessKeyPattern, job.AccessKeyholePattern)
	if err != nil {
		logger.Error().Err(err).Msg("bad access pattern in binding config")
		job.reply(req.ID, protocol.Classify(protocol.ErrBadAccessPattern))
		return
	}
	if !admitted {
		job.reply(req.ID, protocol.Classify(&protocol.AccessDeniedError{Reason: "binding keyhole"}))
		return
	}

	var params []json.RawMessage
	_ = json.Unmarshal(req.Params, &params)
	var kwparams map[string]json.RawMessage
	_ = json.Unmarshal(req.KwParams, &kwparams)

	logger.Debug().Str("args", redactedArgs(kwparams)).Msg("invoking")

	call := &methodtree.Call{
		Params:               params,
		KwParams:             kwparams,
		Access:               accessCtx,
		AccessKeyPattern:     job.AccessKeyPattern,
		AccessKeyholePattern: job.AccessKeyholePattern,
	}
	result, err := proc.Invoke(ctx, call)
	if err != nil {
		job.reply(req.ID, protocol.Classify(err))
		return
	}

	payload, err := protocol.EncodeSuccess(req.ID, result)
	if err != nil {
		logger.Error().Err(err).Msg("encoding success response failed unexpectedly")
		return
	}
	job.publish(payload)
	metrics.TasksCompletedTotal.WithLabelValues("ok").Inc()
}

// reply encodes rpcErr as the failure response for id and publishes it.
func (job Job) reply(id json.RawMessage, rpcErr *protocol.RPCError) {
	payload, err := protocol.EncodeFailure(id, rpcErr)
	if err != nil {
		log.WithTaskID(job.TaskID).Error().Err(err).Msg("encoding failure response failed unexpectedly")
		return
	}
	job.publish(payload)
	metrics.TasksCompletedTotal.WithLabelValues(rpcErr.Name).Inc()
}

func (job Job) publish(payload []byte) {
	job.ControlPlane.Publish(&responder.Result{
		TaskID:        job.TaskID,
		Exchange:      job.ResponseExchange,
		ReplyTo:       job.ReplyTo,
		CorrelationID: job.CorrelationID,
		Payload:       payload,
	})
}

// redactedArgs renders kwparams for logging, masking any parameter whose
// name looks like a password ("passw*").
func redactedArgs(kwparams map[string]json.RawMessage) string {
	names := make([]string, 0, len(kwparams))
	for name := range kwparams {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), "passw") {
			parts = append(parts, name+"=***")
			continue
		}
		parts = append(parts, name+"="+string(kwparams[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
