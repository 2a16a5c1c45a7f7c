package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/OrderSync/internal/broker/messages"
	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/metrics"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/ordersync"
	"github.com/BearBump/OrderSync/internal/services/workflow"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	created  []models.Order
	updated  []models.Order
	assigned []models.Assignment
	itemErr  error
}

func (s *fakeSyncer) CreateFromOrder(ctx context.Context, o models.Order) ordersync.CreateResult {
	s.created = append(s.created, o)
	return ordersync.CreateResult{OrderID: o.ID, Keys: []string{"NDP-1"}}
}

func (s *fakeSyncer) UpdateFromOrder(ctx context.Context, o models.Order) ordersync.UpdateResult {
	s.updated = append(s.updated, o)
	return ordersync.UpdateResult{OrderID: o.ID, Updated: []ordersync.ItemResult{{Product: "A", TicketID: "1", Err: s.itemErr}}}
}

func (s *fakeSyncer) ApplyAssignment(ctx context.Context, a models.Assignment) []ordersync.ItemResult {
	s.assigned = append(s.assigned, a)
	return []ordersync.ItemResult{{Product: "Photos", Skipped: true}}
}

type fakeWorkflow struct {
	events []models.StatusTransitionEvent
}

func (w *fakeWorkflow) HandleIssueMoved(ctx context.Context, ev models.StatusTransitionEvent) (workflow.Outcome, error) {
	w.events = append(w.events, ev)
	return workflow.Outcome{Event: workflow.Classify(ev.Changelog)}, nil
}

type fakeConsumer struct {
	values [][]byte
	errs   []error
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, v := range c.values {
		c.errs = append(c.errs, handler(nil, v))
	}
	return errors.New("drained")
}

func envelope(t *testing.T, typ, store string, payload any) []byte {
	p, err := json.Marshal(payload)
	require.NoError(t, err)
	b, err := messages.NewEnvelope(typ, store, p, time.Now()).Marshal()
	require.NoError(t, err)
	return b
}

func newDispatcher() (*Dispatcher, *fakeSyncer, *fakeWorkflow) {
	s, w := &fakeSyncer{}, &fakeWorkflow{}
	d := New(map[string]Store{"main": {Syncer: s, Workflow: w, Keys: jira.KeysFor(1)}}, metrics.New())
	return d, s, w
}

func TestDispatcher_RoutesByType(t *testing.T) {
	d, s, w := newDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, envelope(t, messages.TypeOrderCreated, "main", models.Order{ID: "42"})))
	require.NoError(t, d.Handle(ctx, envelope(t, messages.TypeOrderUpdated, "main", models.Order{ID: "43"})))
	require.NoError(t, d.Handle(ctx, envelope(t, messages.TypeAssignmentChanged, "main", models.Assignment{OrderID: "42"})))
	require.NoError(t, d.Handle(ctx, envelope(t, messages.TypeIssueMoved, "main", map[string]any{
		"issue":     map[string]any{"id": "10001", "key": "NDP-1", "fields": map[string]any{"customfield_10501": "42"}},
		"changelog": map[string]any{"id": "7", "items": []map[string]string{{"field": "status", "fromString": "Edit", "toString": "Final Review"}}},
	})))

	require.Equal(t, "42", s.created[0].ID)
	require.Equal(t, "43", s.updated[0].ID)
	require.Equal(t, "42", s.assigned[0].OrderID)
	require.Len(t, w.events, 1)
	require.Equal(t, "42", w.events[0].Issue.Fields.OrderNumber)
	require.Equal(t, "7", w.events[0].Changelog.ID)

	st := d.Stats()
	require.Equal(t, int64(4), st.TotalReceived)
	require.Equal(t, int64(4), st.TotalHandled)
	require.Zero(t, st.TotalFailed)
	require.NotNil(t, st.LastEventAt)
}

func TestDispatcher_BadEventsAreAcknowledged(t *testing.T) {
	d, s, _ := newDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, []byte(`garbage`)))
	require.NoError(t, d.Handle(ctx, envelope(t, messages.TypeOrderCreated, "other", models.Order{ID: "1"})))
	require.NoError(t, d.Handle(ctx, envelope(t, "order.deleted", "main", models.Order{ID: "1"})))

	raw, err := messages.NewEnvelope(messages.TypeOrderCreated, "main", []byte(`"not an order"`), time.Now()).Marshal()
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, raw))

	require.Empty(t, s.created)
	st := d.Stats()
	require.Equal(t, int64(4), st.TotalDropped)
	require.NotEmpty(t, st.LastError)
}

func TestDispatcher_ItemFailureCounted(t *testing.T) {
	d, s, _ := newDispatcher()
	s.itemErr = errors.New("tracker down")

	require.NoError(t, d.Handle(context.Background(), envelope(t, messages.TypeOrderUpdated, "main", models.Order{ID: "42"})))
	st := d.Stats()
	require.Equal(t, int64(1), st.TotalFailed)
	require.Equal(t, "tracker down", st.LastError)
}

func TestDispatcher_CancelledContextLeavesMessage(t *testing.T) {
	d, _, _ := newDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Handle(ctx, envelope(t, messages.TypeOrderCreated, "main", models.Order{ID: "42"}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_Run(t *testing.T) {
	d, s, _ := newDispatcher()
	c := &fakeConsumer{values: [][]byte{
		envelope(t, messages.TypeOrderCreated, "main", models.Order{ID: "1"}),
		envelope(t, messages.TypeOrderCreated, "main", models.Order{ID: "2"}),
	}}

	err := d.Run(context.Background(), c)
	require.EqualError(t, err, "drained")
	require.Len(t, s.created, 2)
	require.Equal(t, []error{nil, nil}, c.errs)
}
