package models

// Field names a well-known ticket field independently of the tracker instance.
type Field int

const (
	FieldOrderNumber Field = iota + 1
	FieldClientName
	FieldClientEmail
	FieldClientPhone
	FieldListingAddress
	FieldSquareFootage
	FieldBookingDate
	FieldMapLink
	FieldService
	FieldShootStartTime
	FieldShootDate
	FieldSpecialInstructions
	FieldEditingTeam
	FieldNotesForEditor
	FieldAccessInstructions
	FieldExpectedOutput
	FieldSameDay
	FieldAppointmentNumber
	FieldMediaProID
	FieldFolderCreated
	FieldRawMediaFolder
	FieldCompletedMediaFolder
	FieldListingLink
	FieldAssignee
	FieldReporter
	FieldPriority
)

const (
	FolderCreatedYes = "Yes"
	FolderCreatedNo  = "No"

	SameDayYes   = "Yes"
	PriorityHigh = "High"
)

// TicketFields is the typed view of a ticket's fields. Empty strings and nil
// documents are omitted when encoded; Cleared fields are sent as explicit nulls.
type TicketFields struct {
	ProjectID   string
	ProjectName string
	IssueTypeID string
	Summary     string

	OrderNumber          string
	ClientName           string
	ClientEmail          string
	ClientPhone          string
	ListingAddress       string
	SquareFootage        string
	BookingDate          string
	MapLink              string
	Service              string
	ShootStartTime       string
	ShootDate            string
	SpecialInstructions  *Doc
	EditingTeam          string
	NotesForEditor       *Doc
	AccessInstructions   *Doc
	ExpectedOutput       string
	SameDay              string
	Priority             string
	Reporter             string
	Assignee             string
	AppointmentNumber    string
	MediaProID           string
	FolderCreated        string
	RawMediaFolder       string
	CompletedMediaFolder string
	ListingLink          string

	Cleared []Field
}

// Clone deep-copies the documents and the Cleared list.
func (f TicketFields) Clone() TicketFields {
	out := f
	out.SpecialInstructions = f.SpecialInstructions.Clone()
	out.NotesForEditor = f.NotesForEditor.Clone()
	out.AccessInstructions = f.AccessInstructions.Clone()
	if f.Cleared != nil {
		out.Cleared = append([]Field(nil), f.Cleared...)
	}
	return out
}

// TicketPayload is one create/update request body for a single ticket.
type TicketPayload struct {
	Fields TicketFields
}

func (p TicketPayload) Clone() TicketPayload {
	return TicketPayload{Fields: p.Fields.Clone()}
}

// WithoutReporter returns a copy with the reporter removed; p is untouched.
func (p TicketPayload) WithoutReporter() TicketPayload {
	out := p.Clone()
	out.Fields.Reporter = ""
	return out
}

// WithoutBookingDate returns a copy with the booking date removed; p is untouched.
func (p TicketPayload) WithoutBookingDate() TicketPayload {
	out := p.Clone()
	out.Fields.BookingDate = ""
	return out
}

// Ticket is a ticket as read back from the tracker.
type Ticket struct {
	ID     string
	Key    string
	Status string
	Fields TicketFields
}

type ChangelogItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

type Changelog struct {
	ID    string          `json:"id"`
	Items []ChangelogItem `json:"items"`
}

// StatusTransitionEvent is one "issue moved" delivery from the tracker.
type StatusTransitionEvent struct {
	Issue     Ticket
	Changelog Changelog
}
