package models

import "strings"

// Order statuses that cancel every ticket of the order.
const (
	OrderStatusCanceled  = "canceled"
	OrderStatusCancelled = "cancelled"
)

// Assignment statuses that release the photographer from the order.
const (
	AssignmentStatusCanceled  = "canceled"
	AssignmentStatusCancelled = "cancelled"
	AssignmentStatusDeleted   = "deleted"
)

// Order is one snapshot of an order as delivered by the ordering platform webhook.
type Order struct {
	ID                     string           `json:"id" validate:"required"`
	AgentName              string           `json:"agent_name"`
	AgentLastName          string           `json:"agent_last_name"`
	AgentEmail             string           `json:"agent_email"`
	AgentPhone             string           `json:"agent_phone"`
	PropertyAddress        string           `json:"property_address"`
	PropertyStreet         string           `json:"property_street"`
	PropertySqftRange      string           `json:"property_sqft_range"`
	ShootDate              string           `json:"shoot_date"`
	RawBookingDate         string           `json:"raw_booking_date"`
	OrderNotes             []OrderNote      `json:"order_notes"`
	ServiceIntakeQuestions []IntakeQuestion `json:"service_intake_questions"`
	Products               []Product        `json:"products_list" validate:"dive"`
	Assignments            []Assignment     `json:"assignments"`
	Status                 string           `json:"status"`
}

// IsCanceled reports whether the order snapshot cancels the whole order.
func (o Order) IsCanceled() bool {
	s := strings.ToLower(o.Status)
	return s == OrderStatusCanceled || s == OrderStatusCancelled
}

// Product is a line item; Name is the reconciliation key, not ProductID.
type Product struct {
	ProductID              string           `json:"product_id"`
	Name                   string           `json:"name" validate:"required"`
	Variation              string           `json:"variation"`
	IsEssentialsPackage    bool             `json:"isEssentialsPackage"`
	ServiceIntakeQuestions []IntakeQuestion `json:"service_intake_questions"`
}

type IntakeQuestion struct {
	ProductID string `json:"product_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

type OrderNote struct {
	Body string `json:"body"`
}

// Assignment schedules a photographer for some products of an order.
type Assignment struct {
	ID                string            `json:"id"`
	OrderID           string            `json:"order_id" validate:"required"`
	AccountID         string            `json:"accountId"`
	PhotographerEmail string            `json:"photographer_email"`
	StartDate         string            `json:"start_date"`
	Status            string            `json:"status"`
	PropertyAddress   string            `json:"property_address"`
	PropertyStreet    string            `json:"property_street"`
	Products          []AssignedProduct `json:"products_list"`
}

// IsReleased reports whether the assignment no longer binds a photographer.
func (a Assignment) IsReleased() bool {
	switch strings.ToLower(a.Status) {
	case AssignmentStatusCanceled, AssignmentStatusCancelled, AssignmentStatusDeleted:
		return true
	}
	return false
}

type AssignedProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

// AgentPreference holds an agent's standing instructions for the media team.
type AgentPreference struct {
	ShootPref    string `json:"customer_shoot_pref"`
	EditingPref  string `json:"customer_editing_pref"`
	DeliveryPref string `json:"customer_delivery_pref"`
}
