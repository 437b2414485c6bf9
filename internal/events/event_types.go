package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketStatusMoved EventType = "ticket_status_moved"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted after a commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Folio     string    `json:"folio"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Requester is the contact a ticket was filed for.
type Requester struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Requester       Requester             `json:"requester"`
	Title           string                `json:"title"`
	Category        domain.TicketCategory `json:"category"`
	Priority        domain.TicketPriority `json:"priority"`
	AttachmentNames []string              `json:"attachment_names,omitempty"`
}

// TicketUpdatedPayload payload for a management update with a history entry.
type TicketUpdatedPayload struct {
	Requester   Requester           `json:"requester"`
	Title       string              `json:"title"`
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	CommentHTML string              `json:"comment_html,omitempty"`
	IsInternal  bool                `json:"is_internal"`
	Notify      bool                `json:"notify"`
}

// TicketStatusMovedPayload payload for a quick board move.
type TicketStatusMovedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	AssignedToID *string             `json:"assigned_to_id,omitempty"`
}
