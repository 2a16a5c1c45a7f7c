package jira

import "github.com/BearBump/OrderSync/internal/models"

// IssueTypeMediaJob is the issue type every product ticket is created with.
const IssueTypeMediaJob = "10500"

// FieldKeys maps logical ticket fields to one tracker instance's custom field ids.
type FieldKeys struct {
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
	SpecialInstructions  string
	EditingTeam          string
	NotesForEditor       string
	AccessInstructions   string
	ExpectedOutput       string
	SameDay              string
	AppointmentNumber    string
	MediaProID           string
	FolderCreated        string
	RawMediaFolder       string
	CompletedMediaFolder string
	ListingLink          string
}

var sharedKeys = FieldKeys{
	OrderNumber:          "customfield_10501",
	ClientName:           "customfield_10600",
	ClientEmail:          "customfield_10601",
	ClientPhone:          "customfield_10602",
	ListingAddress:       "customfield_10603",
	SquareFootage:        "customfield_10610",
	BookingDate:          "customfield_10614",
	MapLink:              "customfield_11400",
	Service:              "customfield_11104",
	ShootStartTime:       "customfield_10711",
	ShootDate:            "customfield_12200",
	NotesForEditor:       "customfield_11601",
	SameDay:              "customfield_12573",
	AppointmentNumber:    "customfield_11900",
	FolderCreated:        "customfield_12543",
	RawMediaFolder:       "customfield_10713",
	CompletedMediaFolder: "customfield_10714",
}

// KeysFor selects the field table of a tracker instance. Unknown instances
// get the instance 1 table.
func KeysFor(instance int) FieldKeys {
	k := sharedKeys
	switch instance {
	case 2:
		k.SpecialInstructions = "customfield_12612"
		k.EditingTeam = "customfield_12648"
		k.AccessInstructions = "customfield_12611"
		k.ExpectedOutput = "customfield_12713"
		k.MediaProID = "customfield_12646"
		k.ListingLink = "customfield_12700"
	default:
		k.SpecialInstructions = "customfield_12595"
		k.EditingTeam = "customfield_12644"
		k.AccessInstructions = "customfield_12594"
		k.ExpectedOutput = "customfield_12698"
		k.MediaProID = "customfield_12642"
		k.ListingLink = "customfield_12688"
	}
	return k
}

// Key returns the wire key of a logical field. System fields use their
// tracker names.
func (k FieldKeys) Key(f models.Field) string {
	switch f {
	case models.FieldOrderNumber:
		return k.OrderNumber
	case models.FieldClientName:
		return k.ClientName
	case models.FieldClientEmail:
		return k.ClientEmail
	case models.FieldClientPhone:
		return k.ClientPhone
	case models.FieldListingAddress:
		return k.ListingAddress
	case models.FieldSquareFootage:
		return k.SquareFootage
	case models.FieldBookingDate:
		return k.BookingDate
	case models.FieldMapLink:
		return k.MapLink
	case models.FieldService:
		return k.Service
	case models.FieldShootStartTime:
		return k.ShootStartTime
	case models.FieldShootDate:
		return k.ShootDate
	case models.FieldSpecialInstructions:
		return k.SpecialInstructions
	case models.FieldEditingTeam:
		return k.EditingTeam
	case models.FieldNotesForEditor:
		return k.NotesForEditor
	case models.FieldAccessInstructions:
		return k.AccessInstructions
	case models.FieldExpectedOutput:
		return k.ExpectedOutput
	case models.FieldSameDay:
		return k.SameDay
	case models.FieldAppointmentNumber:
		return k.AppointmentNumber
	case models.FieldMediaProID:
		return k.MediaProID
	case models.FieldFolderCreated:
		return k.FolderCreated
	case models.FieldRawMediaFolder:
		return k.RawMediaFolder
	case models.FieldCompletedMediaFolder:
		return k.CompletedMediaFolder
	case models.FieldListingLink:
		return k.ListingLink
	case models.FieldAssignee:
		return "assignee"
	case models.FieldReporter:
		return "reporter"
	case models.FieldPriority:
		return "priority"
	}
	return ""
}

// Display names used in JQL clauses.
const (
	jqlOrderNumber = `"NDPU Order Number[Short text]"`
	jqlService     = `"NDPU Service[Short text]"`
	jqlListingLink = `"NDPU RelaHQ Upload Link"`
)
