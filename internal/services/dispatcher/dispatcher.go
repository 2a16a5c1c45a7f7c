package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/OrderSync/internal/broker/messages"
	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/metrics"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/ordersync"
	"github.com/BearBump/OrderSync/internal/services/workflow"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Syncer interface {
	CreateFromOrder(ctx context.Context, order models.Order) ordersync.CreateResult
	UpdateFromOrder(ctx context.Context, order models.Order) ordersync.UpdateResult
	ApplyAssignment(ctx context.Context, a models.Assignment) []ordersync.ItemResult
}

type Workflow interface {
	HandleIssueMoved(ctx context.Context, ev models.StatusTransitionEvent) (workflow.Outcome, error)
}

type Consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// Store is everything wired for one storefront.
type Store struct {
	Syncer   Syncer
	Workflow Workflow
	Keys     jira.FieldKeys
}

const (
	resultOK      = "ok"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

// Dispatcher routes queued envelopes to the owning store's services. Bad or
// failed events are logged and acknowledged so they never block a partition.
type Dispatcher struct {
	stores  map[string]Store
	metrics *metrics.Metrics

	startedAtUnixNano int64
	lastEventUnixNano atomic.Int64
	totalReceived     atomic.Int64
	totalHandled      atomic.Int64
	totalFailed       atomic.Int64
	totalDropped      atomic.Int64
	inFlight          atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(stores map[string]Store, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		stores:            stores,
		metrics:           m,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastEventAt   *time.Time `json:"lastEventAt,omitempty"`
	TotalReceived int64      `json:"totalReceived"`
	TotalHandled  int64      `json:"totalHandled"`
	TotalFailed   int64      `json:"totalFailed"`
	TotalDropped  int64      `json:"totalDropped"`
	InFlight      int64      `json:"inFlight"`
	LastError     string     `json:"lastError,omitempty"`
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, d.startedAtUnixNano).UTC(),
		TotalReceived: d.totalReceived.Load(),
		TotalHandled:  d.totalHandled.Load(),
		TotalFailed:   d.totalFailed.Load(),
		TotalDropped:  d.totalDropped.Load(),
		InFlight:      d.inFlight.Load(),
	}
	if n := d.lastEventUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastEventAt = &t
	}
	d.lastErrorMu.Lock()
	st.LastError = d.lastError
	d.lastErrorMu.Unlock()
	return st
}

// Run consumes until ctx is done or the consumer fails.
func (d *Dispatcher) Run(ctx context.Context, c Consumer) error {
	return c.Consume(ctx, func(_ []byte, value []byte) error {
		return d.Handle(ctx, value)
	})
}

// Handle processes one envelope. Only a cancelled context is returned, so the
// message stays uncommitted during shutdown.
func (d *Dispatcher) Handle(ctx context.Context, value []byte) error {
	start := time.Now()
	d.lastEventUnixNano.Store(start.UTC().UnixNano())
	d.totalReceived.Add(1)
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	env, err := messages.Decode(value)
	if err != nil {
		d.drop("", err)
		return nil
	}
	st, ok := d.stores[env.StoreID]
	if !ok {
		d.drop(env.Type, errors.Errorf("unknown store %q", env.StoreID))
		return nil
	}

	lg := log.With().Str("store", env.StoreID).Str("type", env.Type).Str("id", env.ID).Logger()
	err = d.route(ctx, st, env)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result := resultOK
	switch {
	case errors.Is(err, models.ErrValidation):
		result = resultDropped
		d.totalDropped.Add(1)
		d.setLastError(err)
		lg.Warn().Err(err).Msg("event dropped")
	case err != nil:
		result = resultFailed
		d.totalFailed.Add(1)
		d.setLastError(err)
		lg.Error().Err(err).Msg("event failed")
	default:
		lg.Debug().Dur("took", time.Since(start)).Msg("event handled")
	}
	d.totalHandled.Add(1)
	d.metrics.ObserveEvent(env.Type, result, time.Since(start))
	return nil
}

func (d *Dispatcher) drop(typ string, err error) {
	d.totalDropped.Add(1)
	d.setLastError(err)
	d.metrics.ObserveEvent(typ, resultDropped, 0)
	log.Warn().Err(err).Msg("event dropped")
}

func (d *Dispatcher) setLastError(err error) {
	d.lastErrorMu.Lock()
	d.lastError = err.Error()
	d.lastErrorMu.Unlock()
}

func (d *Dispatcher) route(ctx context.Context, st Store, env messages.Envelope) error {
	switch env.Type {
	case messages.TypeOrderCreated:
		var o models.Order
		if err := decode(env.Payload, &o); err != nil {
			return err
		}
		res := st.Syncer.CreateFromOrder(ctx, o)
		d.metrics.ObserveItems("create", len(res.Keys), len(res.Errs))
		return firstErr(res.Errs...)

	case messages.TypeOrderUpdated:
		var o models.Order
		if err := decode(env.Payload, &o); err != nil {
			return err
		}
		res := st.Syncer.UpdateFromOrder(ctx, o)
		d.metrics.ObserveItems("create", len(res.Created), len(res.CreateErr))
		errs := append([]error(nil), res.CreateErr...)
		errs = append(errs, d.countItems("update", res.Updated)...)
		errs = append(errs, d.countItems("cancel", res.Canceled)...)
		return firstErr(errs...)

	case messages.TypeAssignmentChanged:
		var a models.Assignment
		if err := decode(env.Payload, &a); err != nil {
			return err
		}
		return firstErr(d.countItems("assign", st.Syncer.ApplyAssignment(ctx, a))...)

	case messages.TypeIssueMoved:
		ev, err := jira.DecodeIssueMoved(st.Keys, env.Payload)
		if err != nil {
			return err
		}
		_, err = st.Workflow.HandleIssueMoved(ctx, ev)
		return err
	}
	return errors.Wrapf(models.ErrValidation, "unknown event type %q", env.Type)
}

func (d *Dispatcher) countItems(op string, items []ordersync.ItemResult) []error {
	var errs []error
	ok := 0
	for _, it := range items {
		switch {
		case it.Err != nil:
			errs = append(errs, it.Err)
		case !it.Skipped:
			ok++
		}
	}
	d.metrics.ObserveItems(op, ok, len(errs))
	return errs
}

func decode(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrap(models.ErrValidation, err.Error())
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
