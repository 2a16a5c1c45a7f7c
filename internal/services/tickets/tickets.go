package tickets

import (
	"context"
	"strings"

	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// MaxBatch is the tracker's bulk-create limit. Larger batches are rejected whole.
	MaxBatch = 50

	maxAttempts = 2

	orderPageSize = 50
)

var (
	ErrEmptyBatch    = errors.New("empty batch")
	ErrBatchTooLarge = errors.New("batch exceeds 50 tickets")
)

// Tracker is the issue tracker REST surface the ticket client drives.
type Tracker interface {
	BulkCreate(ctx context.Context, payloads []models.TicketPayload) ([]string, error)
	UpdateIssue(ctx context.Context, issueID string, p models.TicketPayload) error
	TransitionIssue(ctx context.Context, issueID, transitionID string) error
	Search(ctx context.Context, jql string, maxResults int, paged bool) (*jira.SearchResult, error)
	LinkIssues(ctx context.Context, linkType, inwardKey, outwardKey string) error
	FindUserByEmail(ctx context.Context, email string) (*jira.User, error)
	Keys() jira.FieldKeys
}

// Client applies the batch, retry and transition rules on top of a Tracker.
type Client struct {
	t       Tracker
	boardID string
}

func New(t Tracker, boardID string) *Client {
	return &Client{t: t, boardID: boardID}
}

func (c *Client) BoardID() string { return c.boardID }

var transitions = map[string]string{
	"scheduled":      "231",
	"acknowledged":   "241",
	"at listing":     "241",
	"shoot complete": "321",
}

// TransitionFor returns the cancel transition id for a ticket status.
func TransitionFor(status string) (string, bool) {
	id, ok := transitions[strings.ToLower(strings.TrimSpace(status))]
	return id, ok
}

// CreateBatch creates up to MaxBatch tickets and returns their keys.
func (c *Client) CreateBatch(ctx context.Context, payloads []models.TicketPayload) ([]string, error) {
	if len(payloads) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(payloads) > MaxBatch {
		return nil, ErrBatchTooLarge
	}
	return c.createBatch(ctx, payloads, 1)
}

func (c *Client) createBatch(ctx context.Context, payloads []models.TicketPayload, attempt int) ([]string, error) {
	keys, err := c.t.BulkCreate(ctx, payloads)
	if err == nil {
		return keys, nil
	}
	if attempt < maxAttempts && jira.IsReporterRejected(err) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("reporter rejected, retrying bulk create without reporter")
		stripped := make([]models.TicketPayload, len(payloads))
		for i, p := range payloads {
			stripped[i] = p.WithoutReporter()
		}
		return c.createBatch(ctx, stripped, attempt+1)
	}
	return nil, errors.Wrapf(err, "bulk create (attempt %d)", attempt)
}

// Update patches one ticket with the same reporter retry as CreateBatch.
func (c *Client) Update(ctx context.Context, issueID string, p models.TicketPayload) error {
	return c.update(ctx, issueID, p, 1)
}

func (c *Client) update(ctx context.Context, issueID string, p models.TicketPayload, attempt int) error {
	err := c.t.UpdateIssue(ctx, issueID, p)
	if err == nil {
		return nil
	}
	if attempt < maxAttempts && jira.IsReporterRejected(err) {
		log.Warn().Err(err).Str("ticket", issueID).Int("attempt", attempt).Msg("reporter rejected, retrying update without reporter")
		return c.update(ctx, issueID, p.WithoutReporter(), attempt+1)
	}
	return errors.Wrapf(err, "update %s (attempt %d)", issueID, attempt)
}

// SetFields patches fields without the reporter retry.
func (c *Client) SetFields(ctx context.Context, issueID string, f models.TicketFields) error {
	if err := c.t.UpdateIssue(ctx, issueID, models.TicketPayload{Fields: f}); err != nil {
		return errors.Wrapf(err, "set fields %s", issueID)
	}
	return nil
}

func (c *Client) Cancel(ctx context.Context, issueID, transitionID string) error {
	if err := c.t.TransitionIssue(ctx, issueID, transitionID); err != nil {
		return errors.Wrapf(err, "transition %s to %s", issueID, transitionID)
	}
	return nil
}

// Search never fails: transport errors and malformed answers yield no tickets.
func (c *Client) Search(ctx context.Context, jql string, maxResults int, paged bool) []models.Ticket {
	res, err := c.t.Search(ctx, jql, maxResults, paged)
	if err != nil {
		log.Warn().Err(err).Str("jql", jql).Msg("ticket search failed")
		return []models.Ticket{}
	}
	if res == nil || len(res.Issues) == 0 {
		return []models.Ticket{}
	}
	keys := c.t.Keys()
	out := make([]models.Ticket, 0, len(res.Issues))
	for _, is := range res.Issues {
		if is.ID == "" {
			continue
		}
		out = append(out, jira.DecodeIssue(keys, is))
	}
	return out
}

// FindByOrder returns the live ticket of one product of an order.
func (c *Client) FindByOrder(ctx context.Context, orderNumber, productName string) (models.Ticket, bool) {
	found := c.Search(ctx, jira.OrderProductJQL(orderNumber, productName, c.boardID), 1, false)
	if len(found) == 0 {
		return models.Ticket{}, false
	}
	return found[0], true
}

// FindAllByOrder returns every live product ticket of an order.
func (c *Client) FindAllByOrder(ctx context.Context, orderNumber string) []models.Ticket {
	return c.Search(ctx, jira.OrderTicketsJQL(orderNumber, c.boardID), orderPageSize, true)
}

// FindWithListingLink returns a ticket of the order that already has a listing link.
func (c *Client) FindWithListingLink(ctx context.Context, orderNumber string) (models.Ticket, bool) {
	for _, t := range c.Search(ctx, jira.ListingLinkJQL(orderNumber, c.boardID), 1, false) {
		if t.Fields.ListingLink != "" {
			return t, true
		}
	}
	return models.Ticket{}, false
}

func (c *Client) Link(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	if err := c.t.LinkIssues(ctx, linkType, inwardKey, outwardKey); err != nil {
		return errors.Wrapf(err, "link %s -> %s", inwardKey, outwardKey)
	}
	return nil
}

// FindUserByEmail returns the tracker account id of a user, or false.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (string, bool, error) {
	u, err := c.t.FindUserByEmail(ctx, email)
	if err != nil {
		return "", false, errors.Wrapf(err, "find user %s", email)
	}
	if u == nil || u.AccountID == "" {
		return "", false, nil
	}
	return u.AccountID, true, nil
}
