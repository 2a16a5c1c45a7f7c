package jira

import (
	"encoding/json"

	"github.com/BearBump/OrderSync/internal/models"
)

type idRef struct {
	ID any `json:"id"`
}

type nameRef struct {
	Name string `json:"name"`
}

// EncodeFields renders typed fields into the instance's wire field map.
func EncodeFields(k FieldKeys, f models.TicketFields) map[string]any {
	out := map[string]any{}

	if f.ProjectID != "" {
		out["project"] = idRef{ID: f.ProjectID}
	}
	if f.IssueTypeID != "" {
		out["issuetype"] = idRef{ID: f.IssueTypeID}
	}
	putString(out, "summary", f.Summary)
	if f.Priority != "" {
		out["priority"] = nameRef{Name: f.Priority}
	}
	if f.Reporter != "" {
		out["reporter"] = idRef{ID: f.Reporter}
	}
	if f.Assignee != "" {
		out["assignee"] = idRef{ID: f.Assignee}
	}

	putString(out, k.OrderNumber, f.OrderNumber)
	putString(out, k.ClientName, f.ClientName)
	putString(out, k.ClientEmail, f.ClientEmail)
	putString(out, k.ClientPhone, f.ClientPhone)
	putString(out, k.ListingAddress, f.ListingAddress)
	putString(out, k.SquareFootage, f.SquareFootage)
	putString(out, k.BookingDate, f.BookingDate)
	putString(out, k.MapLink, f.MapLink)
	putString(out, k.Service, f.Service)
	putString(out, k.ShootStartTime, f.ShootStartTime)
	putString(out, k.ShootDate, f.ShootDate)
	putDoc(out, k.SpecialInstructions, f.SpecialInstructions)
	putString(out, k.EditingTeam, f.EditingTeam)
	putDoc(out, k.NotesForEditor, f.NotesForEditor)
	putDoc(out, k.AccessInstructions, f.AccessInstructions)
	putString(out, k.ExpectedOutput, f.ExpectedOutput)
	putString(out, k.SameDay, f.SameDay)
	putString(out, k.AppointmentNumber, f.AppointmentNumber)
	putString(out, k.MediaProID, f.MediaProID)
	putString(out, k.FolderCreated, f.FolderCreated)
	putString(out, k.RawMediaFolder, f.RawMediaFolder)
	putString(out, k.CompletedMediaFolder, f.CompletedMediaFolder)
	putString(out, k.ListingLink, f.ListingLink)

	for _, c := range f.Cleared {
		if key := k.Key(c); key != "" {
			out[key] = nil
		}
	}
	return out
}

func putString(m map[string]any, key, v string) {
	if key != "" && v != "" {
		m[key] = v
	}
}

func putDoc(m map[string]any, key string, d *models.Doc) {
	if key != "" && d != nil {
		m[key] = d
	}
}

// DecodeIssue turns a tracker issue into the typed ticket view.
func DecodeIssue(k FieldKeys, is Issue) models.Ticket {
	raw := is.Fields
	f := models.TicketFields{
		Summary:              str(raw["summary"]),
		OrderNumber:          str(raw[k.OrderNumber]),
		ClientName:           str(raw[k.ClientName]),
		ClientEmail:          str(raw[k.ClientEmail]),
		ClientPhone:          str(raw[k.ClientPhone]),
		ListingAddress:       str(raw[k.ListingAddress]),
		SquareFootage:        str(raw[k.SquareFootage]),
		BookingDate:          str(raw[k.BookingDate]),
		MapLink:              str(raw[k.MapLink]),
		Service:              str(raw[k.Service]),
		ShootStartTime:       str(raw[k.ShootStartTime]),
		ShootDate:            str(raw[k.ShootDate]),
		SpecialInstructions:  doc(raw[k.SpecialInstructions]),
		EditingTeam:          str(raw[k.EditingTeam]),
		NotesForEditor:       doc(raw[k.NotesForEditor]),
		AccessInstructions:   doc(raw[k.AccessInstructions]),
		ExpectedOutput:       str(raw[k.ExpectedOutput]),
		SameDay:              str(raw[k.SameDay]),
		AppointmentNumber:    str(raw[k.AppointmentNumber]),
		MediaProID:           str(raw[k.MediaProID]),
		FolderCreated:        str(raw[k.FolderCreated]),
		RawMediaFolder:       str(raw[k.RawMediaFolder]),
		CompletedMediaFolder: str(raw[k.CompletedMediaFolder]),
		ListingLink:          str(raw[k.ListingLink]),
	}

	var project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if b, ok := raw["project"]; ok && json.Unmarshal(b, &project) == nil {
		f.ProjectID, f.ProjectName = project.ID, project.Name
	}
	var named struct {
		Name      string `json:"name"`
		AccountID string `json:"accountId"`
	}
	if b, ok := raw["priority"]; ok && json.Unmarshal(b, &named) == nil {
		f.Priority = named.Name
	}
	named.AccountID = ""
	if b, ok := raw["assignee"]; ok && json.Unmarshal(b, &named) == nil {
		f.Assignee = named.AccountID
	}
	named.AccountID = ""
	if b, ok := raw["reporter"]; ok && json.Unmarshal(b, &named) == nil {
		f.Reporter = named.AccountID
	}

	t := models.Ticket{ID: is.ID, Key: is.Key, Fields: f}
	var status struct {
		Name string `json:"name"`
	}
	if b, ok := raw["status"]; ok && json.Unmarshal(b, &status) == nil {
		t.Status = status.Name
	}
	return t
}

// str reads a text field; select-list values ({"value": "..."}) are unwrapped.
func str(b json.RawMessage) string {
	if len(b) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	var opt struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(b, &opt) == nil {
		return opt.Value
	}
	return ""
}

func doc(b json.RawMessage) *models.Doc {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var d models.Doc
	if json.Unmarshal(b, &d) != nil || d.Type == "" {
		return nil
	}
	return &d
}
