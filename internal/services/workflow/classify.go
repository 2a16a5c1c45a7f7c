package workflow

import (
	"strings"

	"github.com/BearBump/OrderSync/internal/models"
)

// Event is the semantic meaning of a ticket moving between two columns.
type Event string

const (
	EventNone          Event = ""
	EventListing       Event = "LISTING"
	EventShootComplete Event = "SHOOT_COMPLETE"
	EventUploaded      Event = "UPLOADED"
	EventFinalReview   Event = "FINAL_REVIEW"
)

const (
	statusAcknowledged  = "ACKNOWLEDGED"
	statusAtListing     = "AT LISTING"
	statusShootComplete = "SHOOT COMPLETE"
	statusFinalReview   = "FINAL REVIEW"
	statusEdit          = "EDIT"
	statusUploaded      = "UPLOADED"
	statusScheduled     = "SCHEDULED"
)

var watched = map[string]struct{}{
	statusAtListing:     {},
	statusAcknowledged:  {},
	statusShootComplete: {},
	statusFinalReview:   {},
	statusEdit:          {},
	statusUploaded:      {},
	statusScheduled:     {},
}

// Move returns the first changelog item whose both ends are watched statuses,
// upper-cased.
func Move(cl models.Changelog) (from, to string, ok bool) {
	for _, it := range cl.Items {
		f := strings.ToUpper(strings.TrimSpace(it.FromString))
		t := strings.ToUpper(strings.TrimSpace(it.ToString))
		_, fok := watched[f]
		_, tok := watched[t]
		if fok && tok {
			return f, t, true
		}
	}
	return "", "", false
}

// Classify maps a changelog to the event it triggers, or EventNone.
func Classify(cl models.Changelog) Event {
	from, to, ok := Move(cl)
	if !ok {
		return EventNone
	}
	switch {
	case from == statusAcknowledged && to == statusAtListing:
		return EventListing
	case from == statusAtListing && to == statusShootComplete:
		return EventShootComplete
	case to == statusFinalReview:
		return EventFinalReview
	case from == statusScheduled && to == statusUploaded:
		return EventUploaded
	}
	return EventNone
}

// IsFloorplan reports whether a service name needs a drafted floorplan job.
func IsFloorplan(service string) bool {
	s := strings.ToLower(service)
	if strings.Contains(s, "home measurement") {
		return false
	}
	return strings.Contains(s, "floorplan") || strings.Contains(s, "floor plan") || strings.Contains(s, "zillow")
}

// Storage folder categories.
const (
	CategoryAerials = "Aerials"
	Category3D      = "3D Models"
	CategoryFloor   = "Floor Plans"
	CategoryVideos  = "Listing Videos"
	CategoryPhotos  = "Photos"
)

// Categorize picks the storage category of a service name. Earlier rules win.
func Categorize(service string) string {
	s := strings.ToLower(service)
	switch {
	case strings.Contains(s, "aerial"):
		return CategoryAerials
	case strings.Contains(s, "3-d model") || strings.Contains(s, "3d model"):
		return Category3D
	case strings.Contains(s, "floor plan"):
		return CategoryFloor
	case strings.Contains(s, "video"):
		return CategoryVideos
	}
	return CategoryPhotos
}
