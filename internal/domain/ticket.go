package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// TicketStatuses lists every status in board column order.
var TicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further management mutation is accepted.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory routes a ticket to a provider area and scopes its folio sequence.
type TicketCategory string

const (
	TicketCategorySupport     TicketCategory = "SUPPORT"
	TicketCategoryDevelopment TicketCategory = "DEVELOPMENT"
	TicketCategorySales       TicketCategory = "SALES"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategorySupport,
	TicketCategoryDevelopment,
	TicketCategorySales,
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Attachment is an uploaded file reference produced by the attachment store.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	Folio                  string
	SequenceNumber         int64
	Title                  string
	Description            string
	Category               TicketCategory
	Priority               TicketPriority
	Status                 TicketStatus
	CreatorID              string
	CreatedByID            string
	ClientOrganizationID   string
	ProviderOrganizationID string
	AssignedToID           *string
	Attachments            []Attachment
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TicketView is a ticket joined with the display names of its relations.
type TicketView struct {
	Ticket
	ClientName     string
	CreatorName    string
	CreatorEmail   string
	AssignedToName *string
}
