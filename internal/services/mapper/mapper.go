package mapper

import (
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
)

// ErrNoProducts is returned for orders without line items; callers skip them.
var ErrNoProducts = errors.Wrap(models.ErrValidation, "order has no products")

type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

const (
	sameDayMarker = "Same Day"
	mapsURL       = "http://maps.google.com/?q="

	essentialsTitle = "L.O. Editing Preferences:"
	essentialsBody  = "This is an NDP Essential Order. We have removed the 1 Twilight Jira card but please make sure we edit and deliver the 1 Twilght - Day to Dusk conversion photo."
)

// Mapper turns order snapshots into ticket payloads for one store.
type Mapper struct {
	store models.StoreConfig
}

func New(store models.StoreConfig) *Mapper {
	return &Mapper{store: store}
}

// Map builds one payload per product, in product order. prefs is keyed by
// lowercased agent email and may be nil.
func (m *Mapper) Map(order models.Order, prefs map[string]models.AgentPreference, mode Mode) ([]models.TicketPayload, error) {
	if len(order.Products) == 0 {
		return nil, ErrNoProducts
	}
	loc := m.store.Location()

	intake := groupIntake(order)
	byProduct := assignmentTimes(order.Assignments, loc)
	orderTimes := FormatTimes(order.ShootDate, loc)

	common := models.TicketFields{
		ProjectID:           m.store.BoardID,
		IssueTypeID:         jira.IssueTypeMediaJob,
		OrderNumber:         order.ID,
		ClientName:          order.AgentName,
		ClientEmail:         order.AgentEmail,
		ClientPhone:         order.AgentPhone,
		ListingAddress:      order.PropertyAddress,
		SquareFootage:       order.PropertySqftRange,
		BookingDate:         formatDate(order.RawBookingDate, loc),
		MapLink:             MapLink(order.PropertyAddress),
		SpecialInstructions: orderNotesDoc(order.OrderNotes),
		EditingTeam:         m.store.EditingTeam,
	}
	if mode == ModeCreate && m.store.ReporterID != "" {
		common.Reporter = m.store.ReporterID
	}
	if order.AgentEmail != "" {
		if p, ok := prefs[strings.ToLower(order.AgentEmail)]; ok {
			common.NotesForEditor = preferencesDoc(p)
		}
	}

	// Only the first product decides, and the flag lands on every ticket.
	sameDay := strings.Contains(order.Products[0].Name, sameDayMarker)

	lastName := truncate(order.AgentLastName, 10)
	street := truncate(order.PropertyStreet, 15)

	out := make([]models.TicketPayload, 0, len(order.Products))
	for _, p := range order.Products {
		f := common.Clone()

		tf := orderTimes
		if at, ok := byProduct[p.ProductID]; ok {
			tf = at
		}
		f.Service = p.Name
		f.Summary = summary(tf.Summary, lastName, street, p.Name)
		f.ShootStartTime = tf.Hour
		f.ShootDate = tf.Date

		if p.IsEssentialsPackage {
			f.NotesForEditor = prepend(f.NotesForEditor, essentialsParagraph())
		}
		// The order-level list replaces the product's own; the latter is
		// only used when the order carries nothing for this product.
		qa, ok := intake[p.ProductID]
		if !ok {
			qa = qaParagraphs(p.ServiceIntakeQuestions)
		}
		if len(qa) > 0 {
			f.NotesForEditor = appendNodes(f.NotesForEditor, qa...)
			f.AccessInstructions = models.NewDoc(qa...).Clone()
		}
		f.ExpectedOutput = p.Variation

		if sameDay {
			f.SameDay = models.SameDayYes
			f.Priority = models.PriorityHigh
		}
		out = append(out, models.TicketPayload{Fields: f})
	}
	return out, nil
}

// MapLink builds the maps search URL of an address, spaces encoded as %20.
func MapLink(address string) string {
	if address == "" {
		return ""
	}
	return mapsURL + strings.ReplaceAll(url.QueryEscape(address), "+", "%20")
}

func summary(stamp, lastName, street, product string) string {
	return stamp + " " + lastName + " " + street + " " + truncate(product, 10)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// assignmentTimes maps product id to the times of the first assignment naming it.
func assignmentTimes(assignments []models.Assignment, loc *time.Location) map[string]TimeFormats {
	out := map[string]TimeFormats{}
	for _, a := range assignments {
		tf := FormatTimes(a.StartDate, loc)
		for _, p := range a.Products {
			if _, ok := out[p.ProductID]; !ok {
				out[p.ProductID] = tf
			}
		}
	}
	return out
}

func groupIntake(order models.Order) map[string][]models.Node {
	out := map[string][]models.Node{}
	for _, q := range order.ServiceIntakeQuestions {
		out[q.ProductID] = append(out[q.ProductID], qaParagraph(q))
	}
	return out
}
