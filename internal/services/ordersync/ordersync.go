package ordersync

import (
	"context"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/linker"
	"github.com/BearBump/OrderSync/internal/services/mapper"
	"github.com/BearBump/OrderSync/internal/services/reconcile"
	"github.com/BearBump/OrderSync/internal/services/tickets"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Tickets is the ticket client surface the orchestrator needs.
type Tickets interface {
	CreateBatch(ctx context.Context, payloads []models.TicketPayload) ([]string, error)
	Update(ctx context.Context, issueID string, p models.TicketPayload) error
	Cancel(ctx context.Context, issueID, transitionID string) error
	SetFields(ctx context.Context, issueID string, f models.TicketFields) error
	FindByOrder(ctx context.Context, orderNumber, productName string) (models.Ticket, bool)
	FindAllByOrder(ctx context.Context, orderNumber string) []models.Ticket
	FindUserByEmail(ctx context.Context, email string) (string, bool, error)
}

type PreferenceStore interface {
	LoadPreferencesByAgentEmail(ctx context.Context) (map[string]models.AgentPreference, error)
}

type Linker interface {
	Link(ctx context.Context, keys []string) linker.Report
}

// ItemResult is the outcome for one product ticket. Skipped items had nothing
// to act on and are not failures.
type ItemResult struct {
	Product  string
	TicketID string
	Skipped  bool
	Err      error
}

func (r ItemResult) OK() bool { return r.Err == nil }

type CreateResult struct {
	OrderID string
	Skipped bool
	Keys    []string
	Errs    []error
	Links   linker.Report
}

type UpdateResult struct {
	OrderID   string
	Skipped   bool
	Created   []string
	CreateErr []error
	Updated   []ItemResult
	Canceled  []ItemResult
	Links     linker.Report
}

type CancelResult struct {
	OrderID string
	Items   []ItemResult
}

// Syncer drives one store's tickets from order and assignment webhooks.
type Syncer struct {
	tickets Tickets
	prefs   PreferenceStore
	linker  Linker
	mapper  *mapper.Mapper
	rec     *reconcile.Reconciler
}

func New(store models.StoreConfig, t Tickets, prefs PreferenceStore, l Linker) *Syncer {
	return &Syncer{
		tickets: t,
		prefs:   prefs,
		linker:  l,
		mapper:  mapper.New(store),
		rec:     reconcile.New(t),
	}
}

func (s *Syncer) loadPrefs(ctx context.Context) map[string]models.AgentPreference {
	if s.prefs == nil {
		return nil
	}
	p, err := s.prefs.LoadPreferencesByAgentEmail(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load agent preferences")
		return nil
	}
	return p
}

// CreateFromOrder creates one ticket per product and links them.
func (s *Syncer) CreateFromOrder(ctx context.Context, order models.Order) CreateResult {
	res := CreateResult{OrderID: order.ID}
	payloads, err := s.mapper.Map(order, s.loadPrefs(ctx), mapper.ModeCreate)
	if err != nil {
		log.Info().Err(err).Str("order", order.ID).Msg("skip order")
		res.Skipped = true
		return res
	}

	res.Keys, res.Errs = s.createBatch(ctx, payloads)
	for _, err := range res.Errs {
		log.Error().Err(err).Str("order", order.ID).Msg("create tickets")
	}
	if len(res.Keys) > 0 {
		res.Links = s.linker.Link(ctx, res.Keys)
	}
	return res
}

// createBatch submits all payloads in one call. Batches above the tracker
// limit are rejected whole by the ticket client, so nothing is created.
func (s *Syncer) createBatch(ctx context.Context, payloads []models.TicketPayload) ([]string, []error) {
	keys, err := s.tickets.CreateBatch(ctx, payloads)
	if err != nil {
		return nil, []error{err}
	}
	return keys, nil
}

// UpdateFromOrder reconciles the order snapshot with its tickets. Cancelled
// orders are swept instead.
func (s *Syncer) UpdateFromOrder(ctx context.Context, order models.Order) UpdateResult {
	res := UpdateResult{OrderID: order.ID}
	if order.IsCanceled() {
		res.Canceled = s.CancelOrder(ctx, order).Items
		return res
	}

	payloads, err := s.mapper.Map(order, s.loadPrefs(ctx), mapper.ModeUpdate)
	if err != nil {
		log.Info().Err(err).Str("order", order.ID).Msg("skip order")
		res.Skipped = true
		return res
	}
	diff := s.rec.Reconcile(ctx, payloads)

	res.Updated = make([]ItemResult, len(diff.Existing))
	res.Canceled = make([]ItemResult, len(diff.Removed))

	var g errgroup.Group
	if len(diff.New) > 0 {
		g.Go(func() error {
			res.Created, res.CreateErr = s.createBatch(ctx, diff.New)
			return nil
		})
	}
	for i, ex := range diff.Existing {
		g.Go(func() error {
			r := ItemResult{Product: ex.Payload.Fields.Service, TicketID: ex.Ticket.ID}
			r.Err = s.tickets.Update(ctx, ex.Ticket.ID, ex.Payload)
			res.Updated[i] = r
			return nil
		})
	}
	for i, rm := range diff.Removed {
		g.Go(func() error {
			r := ItemResult{TicketID: rm.TicketID}
			r.Err = s.tickets.Cancel(ctx, rm.TicketID, rm.TransitionID)
			res.Canceled[i] = r
			return nil
		})
	}
	_ = g.Wait()

	logItems(order.ID, "update ticket", res.Updated)
	logItems(order.ID, "cancel ticket", res.Canceled)
	for _, err := range res.CreateErr {
		log.Error().Err(err).Str("order", order.ID).Msg("create tickets")
	}

	if len(res.Created) > 0 {
		keys := append([]string(nil), res.Created...)
		for _, ex := range diff.Existing {
			keys = append(keys, ex.Ticket.Key)
		}
		res.Links = s.linker.Link(ctx, keys)
	}
	return res
}

// CancelOrder transitions every product ticket that has a cancel transition.
func (s *Syncer) CancelOrder(ctx context.Context, order models.Order) CancelResult {
	res := CancelResult{OrderID: order.ID, Items: make([]ItemResult, len(order.Products))}

	var g errgroup.Group
	for i, p := range order.Products {
		g.Go(func() error {
			r := ItemResult{Product: p.Name}
			defer func() { res.Items[i] = r }()

			t, ok := s.tickets.FindByOrder(ctx, order.ID, p.Name)
			if !ok {
				r.Skipped = true
				return nil
			}
			r.TicketID = t.ID
			tid, ok := tickets.TransitionFor(t.Status)
			if !ok {
				r.Skipped = true
				return nil
			}
			r.Err = s.tickets.Cancel(ctx, t.ID, tid)
			return nil
		})
	}
	_ = g.Wait()

	logItems(order.ID, "cancel ticket", res.Items)
	return res
}

// ApplyAssignment copies a photographer schedule onto the assigned products'
// tickets, or clears it when the assignment is released.
func (s *Syncer) ApplyAssignment(ctx context.Context, a models.Assignment) []ItemResult {
	accountID := ""
	if !a.IsReleased() && a.PhotographerEmail != "" {
		id, ok, err := s.tickets.FindUserByEmail(ctx, a.PhotographerEmail)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("order", a.OrderID).Msg("resolve photographer")
		case !ok:
			log.Warn().Str("order", a.OrderID).Str("email", a.PhotographerEmail).Msg("photographer has no tracker account")
		default:
			accountID = id
		}
	}

	out := make([]ItemResult, len(a.Products))
	var g errgroup.Group
	for i, p := range a.Products {
		g.Go(func() error {
			r := ItemResult{Product: p.Name}
			defer func() { out[i] = r }()

			if p.Name == "" || a.OrderID == "" {
				r.Skipped = true
				return nil
			}
			t, ok := s.tickets.FindByOrder(ctx, a.OrderID, p.Name)
			if !ok {
				r.Skipped = true
				return nil
			}
			r.TicketID = t.ID

			fields := mapper.ClearAssignmentFields()
			if !a.IsReleased() {
				fields = s.mapper.AssignmentFields(a, t.Fields.ClientName, p.Name, accountID)
			}
			r.Err = s.tickets.SetFields(ctx, t.ID, fields)
			return nil
		})
	}
	_ = g.Wait()

	logItems(a.OrderID, "apply assignment", out)
	return out
}

func logItems(orderID, msg string, items []ItemResult) {
	for _, r := range items {
		if r.Err != nil {
			log.Error().Err(r.Err).Str("order", orderID).Str("ticket", r.TicketID).Str("product", r.Product).Msg(msg)
		}
	}
}
