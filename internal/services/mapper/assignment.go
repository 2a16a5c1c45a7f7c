package mapper

import (
	"strings"

	"github.com/BearBump/OrderSync/internal/models"
)

// AssignmentFields is the patch applied to a product ticket when a photographer
// is scheduled. clientName is the ticket's current client name; its last word
// stands in for the agent's last name in the summary.
func (m *Mapper) AssignmentFields(a models.Assignment, clientName, productName, accountID string) models.TicketFields {
	tf := FormatTimes(a.StartDate, m.store.Location())
	lastName := ""
	if words := strings.Fields(clientName); len(words) > 0 {
		lastName = words[len(words)-1]
	}
	return models.TicketFields{
		ListingAddress:    a.PropertyAddress,
		ShootStartTime:    tf.Hour,
		ShootDate:         tf.Date,
		MapLink:           MapLink(a.PropertyAddress),
		AppointmentNumber: a.ID,
		Assignee:          accountID,
		MediaProID:        a.PhotographerEmail,
		Summary:           summary(tf.Summary, truncate(lastName, 10), truncate(a.PropertyStreet, 15), productName),
	}
}

// ClearAssignmentFields releases the photographer from a ticket.
func ClearAssignmentFields() models.TicketFields {
	return models.TicketFields{
		Cleared: []models.Field{models.FieldAssignee, models.FieldAppointmentNumber, models.FieldMediaProID},
	}
}
