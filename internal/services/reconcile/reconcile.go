package reconcile

import (
	"context"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/tickets"
)

// Finder lists the live tickets of an order.
type Finder interface {
	FindAllByOrder(ctx context.Context, orderNumber string) []models.Ticket
}

type Existing struct {
	Payload models.TicketPayload
	Ticket  models.Ticket
}

type Removed struct {
	TicketID     string
	TicketKey    string
	TransitionID string
}

// Result is the diff between an order snapshot and the tracker's tickets.
type Result struct {
	New      []models.TicketPayload
	Existing []Existing
	Removed  []Removed
}

type Reconciler struct {
	finder Finder
}

func New(f Finder) *Reconciler {
	return &Reconciler{finder: f}
}

// Reconcile matches payloads to the first ticket of the same service name.
// Tickets whose name is not in the order are removals when their status has a
// cancel transition and are ignored otherwise.
func (r *Reconciler) Reconcile(ctx context.Context, payloads []models.TicketPayload) Result {
	var res Result
	if len(payloads) == 0 {
		return res
	}

	existing := r.finder.FindAllByOrder(ctx, payloads[0].Fields.OrderNumber)
	first := make(map[string]models.Ticket, len(existing))
	leftover := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		name := t.Fields.Service
		if _, dup := first[name]; !dup {
			first[name] = t
		}
		leftover[name] = struct{}{}
	}

	for _, p := range payloads {
		t, ok := first[p.Fields.Service]
		if !ok {
			res.New = append(res.New, p)
			continue
		}
		upd := p.Clone()
		if t.Fields.BookingDate != "" {
			upd = upd.WithoutBookingDate()
		}
		res.Existing = append(res.Existing, Existing{Payload: upd, Ticket: t})
		delete(leftover, p.Fields.Service)
	}

	// Every ticket whose name the order no longer carries goes, duplicates included.
	for _, t := range existing {
		if _, ok := leftover[t.Fields.Service]; !ok {
			continue
		}
		if tid, ok := tickets.TransitionFor(t.Status); ok {
			res.Removed = append(res.Removed, Removed{TicketID: t.ID, TicketKey: t.Key, TransitionID: tid})
		}
	}
	return res
}
