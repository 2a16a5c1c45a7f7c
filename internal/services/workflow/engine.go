package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/OrderSync/internal/integrations/cubicasa"
	"github.com/BearBump/OrderSync/internal/integrations/dropbox"
	"github.com/BearBump/OrderSync/internal/integrations/geocode"
	"github.com/BearBump/OrderSync/internal/integrations/rela"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/BearBump/OrderSync/internal/services/idempotency"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrAddressNotFound = errors.New("address not found")

type Tickets interface {
	SetFields(ctx context.Context, issueID string, f models.TicketFields) error
	FindWithListingLink(ctx context.Context, orderNumber string) (models.Ticket, bool)
}

type Drafter interface {
	CreateDraftOrder(ctx context.Context, in cubicasa.DraftRequest) (*cubicasa.DraftOrder, error)
}

type Storage interface {
	CreateFolders(ctx context.Context, r dropbox.FolderRequest) ([]dropbox.FolderLink, error)
	FetchFilesFromURL(ctx context.Context, link string) ([]string, error)
}

type Listings interface {
	FetchOrCreateAgent(ctx context.Context, in rela.AgentInput) (*rela.Agent, error)
	NewPropertyLink(ctx context.Context, agent *rela.Agent, addr *geocode.Address, orderID string) (string, error)
	UploadImages(ctx context.Context, links []string, listingID, idempotencyKey string) (*rela.UploadResult, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Address, error)
}

type Guard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Deps are the services one store's engine drives.
type Deps struct {
	Tickets  Tickets
	Drafter  Drafter
	Storage  Storage
	Listings Listings
	Geocoder Geocoder
	Guard    Guard
}

// Outcome reports what a handled event did. Zero-valued parts were not touched.
type Outcome struct {
	Event       Event
	Draft       *cubicasa.DraftOrder
	ListingLink string
	LinkCreated bool
	Folders     []dropbox.FolderLink
	Uploaded    int
	Duplicate   bool
	Skipped     string
}

type Engine struct {
	store models.StoreConfig
	deps  Deps
	now   func() time.Time
}

func New(store models.StoreConfig, deps Deps) *Engine {
	return &Engine{store: store, deps: deps, now: time.Now}
}

// WithClock replaces the clock used for idempotency keys.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// HandleIssueMoved classifies the transition and runs its handler.
// Transitions that mean nothing return an Outcome with EventNone.
func (e *Engine) HandleIssueMoved(ctx context.Context, ev models.StatusTransitionEvent) (Outcome, error) {
	out := Outcome{Event: Classify(ev.Changelog)}
	lg := log.With().Str("store", e.store.ID).Str("ticket", ev.Issue.Key).Str("event", string(out.Event)).Logger()

	var err error
	switch out.Event {
	case EventListing:
		err = e.handleListing(ctx, ev.Issue, &out)
	case EventShootComplete, EventUploaded:
		err = e.handleShootComplete(ctx, ev.Issue, &out)
	case EventFinalReview:
		err = e.handleFinalReview(ctx, ev, &out)
	default:
		return out, nil
	}
	if err != nil {
		lg.Error().Err(err).Msg("issue moved")
		return out, err
	}
	if out.Skipped != "" {
		lg.Info().Str("reason", out.Skipped).Msg("issue moved: nothing to do")
	} else {
		lg.Info().Msg("issue moved")
	}
	return out, nil
}

func (e *Engine) handleListing(ctx context.Context, t models.Ticket, out *Outcome) error {
	if !IsFloorplan(t.Fields.Service) {
		out.Skipped = "not a floorplan service"
		return nil
	}
	d, err := e.deps.Drafter.CreateDraftOrder(ctx, cubicasa.DraftRequest{
		TicketKey:   t.Key,
		OrderNumber: t.Fields.OrderNumber,
		Address:     t.Fields.ListingAddress,
		Service:     t.Fields.Service,
		ClientEmail: t.Fields.ClientEmail,
		Instance:    e.store.TrackerInstance,
	})
	if err != nil {
		return errors.Wrap(err, "create draft order")
	}
	out.Draft = d
	return nil
}

// handleShootComplete runs the listing-link and folder steps. Both run even
// when the other fails; each is a no-op on a configured ticket.
func (e *Engine) handleShootComplete(ctx context.Context, t models.Ticket, out *Outcome) error {
	linkErr := e.ensureListingLink(ctx, t, out)
	if err := e.ensureFolders(ctx, t, out); err != nil {
		if linkErr != nil {
			log.Warn().Err(linkErr).Str("ticket", t.Key).Msg("listing link")
		}
		return err
	}
	return linkErr
}

func (e *Engine) ensureListingLink(ctx context.Context, t models.Ticket, out *Outcome) error {
	if t.Fields.ListingLink != "" {
		out.ListingLink = t.Fields.ListingLink
		return nil
	}

	link := ""
	if t.Fields.OrderNumber != "" {
		if sib, ok := e.deps.Tickets.FindWithListingLink(ctx, t.Fields.OrderNumber); ok {
			link = sib.Fields.ListingLink
		}
	}
	if link == "" {
		created, err := e.createListing(ctx, t)
		if err != nil {
			return err
		}
		link = created
		out.LinkCreated = true
	}

	if err := e.deps.Tickets.SetFields(ctx, t.ID, models.TicketFields{ListingLink: link}); err != nil {
		return errors.Wrap(err, "save listing link")
	}
	out.ListingLink = link
	return nil
}

func (e *Engine) createListing(ctx context.Context, t models.Ticket) (string, error) {
	if t.Fields.OrderNumber == "" {
		return "", errors.New("ticket has no order number")
	}
	addr, err := e.deps.Geocoder.Geocode(ctx, t.Fields.ListingAddress)
	if err != nil {
		return "", errors.Wrap(err, "geocode")
	}
	if addr == nil {
		return "", errors.Wrapf(ErrAddressNotFound, "%q", t.Fields.ListingAddress)
	}
	agent, err := e.deps.Listings.FetchOrCreateAgent(ctx, rela.AgentInput{
		Name:  t.Fields.ClientName,
		Email: t.Fields.ClientEmail,
		Phone: t.Fields.ClientPhone,
	})
	if err != nil {
		return "", errors.Wrap(err, "listing agent")
	}
	link, err := e.deps.Listings.NewPropertyLink(ctx, agent, addr, t.Fields.OrderNumber)
	if err != nil {
		return "", errors.Wrap(err, "new listing")
	}
	return link, nil
}

func (e *Engine) ensureFolders(ctx context.Context, t models.Ticket, out *Outcome) error {
	if t.Fields.FolderCreated == models.FolderCreatedYes {
		return nil
	}
	links, err := e.deps.Storage.CreateFolders(ctx, dropbox.FolderRequest{
		Project:  t.Fields.ProjectName,
		Category: Categorize(t.Fields.Service),
		Summary:  t.Fields.Summary,
	})
	if err != nil {
		return errors.Wrap(err, "create folders")
	}

	patch := models.TicketFields{}
	for _, l := range links {
		switch {
		case strings.Contains(l.PathDisplay, dropbox.RawMediaFolder):
			patch.RawMediaFolder = l.Link
		case strings.Contains(l.PathDisplay, dropbox.CompletedMediaFolder):
			patch.CompletedMediaFolder = l.Link
		}
	}
	if patch.RawMediaFolder == "" && patch.CompletedMediaFolder == "" {
		return errors.New("storage returned no media folders")
	}
	patch.FolderCreated = models.FolderCreatedYes
	if err := e.deps.Tickets.SetFields(ctx, t.ID, patch); err != nil {
		return errors.Wrap(err, "save folder links")
	}
	out.Folders = links
	return nil
}

func (e *Engine) handleFinalReview(ctx context.Context, ev models.StatusTransitionEvent, out *Outcome) error {
	t := ev.Issue
	if t.Fields.ListingLink == "" {
		out.Skipped = "ticket has no listing link"
		return nil
	}
	out.ListingLink = t.Fields.ListingLink

	key := idempotency.Key(e.now(), ev.Changelog.ID)
	seen, err := e.deps.Guard.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		out.Duplicate = true
		out.Skipped = "already uploaded: " + key
		return nil
	}

	if t.Fields.CompletedMediaFolder == "" {
		return errors.New("ticket has no completed media folder")
	}
	files, err := e.deps.Storage.FetchFilesFromURL(ctx, t.Fields.CompletedMediaFolder)
	if err != nil {
		return errors.Wrap(err, "fetch completed media")
	}
	listingID, err := rela.ListingID(t.Fields.ListingLink)
	if err != nil {
		return err
	}
	if _, err := e.deps.Listings.UploadImages(ctx, files, listingID, key); err != nil {
		return errors.Wrap(err, "upload media")
	}
	out.Uploaded = len(files)

	if err := e.deps.Guard.Mark(ctx, key); err != nil {
		return err
	}
	return nil
}
