package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AttachmentRequest references a file already stored by the upload service.
type AttachmentRequest struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name" validate:"required,max=255"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ClientOrganizationID string                `json:"client_organization_id" validate:"required"`
	RequesterContactID   *string               `json:"requester_contact_id"`
	Title                string                `json:"title" validate:"required,max=200"`
	Description          string                `json:"description" validate:"required"`
	Category             domain.TicketCategory `json:"category" validate:"required,oneof=SUPPORT DEVELOPMENT SALES"`
	Priority             domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Attachments          []AttachmentRequest   `json:"attachments" validate:"dive"`
}

// StatusMoveRequest payload for the board quick move.
type StatusMoveRequest struct {
	Status       domain.TicketStatus `json:"status" validate:"required,oneof=PENDING IN_PROGRESS ESCALATED RESOLVED CLOSED CANCELLED"`
	AssignedToID *string             `json:"assigned_to_id"`
}

// ManagementUpdateRequest payload for a full management update.
type ManagementUpdateRequest struct {
	Status       *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS ESCALATED RESOLVED CLOSED CANCELLED"`
	Priority     *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Category     *domain.TicketCategory `json:"category" validate:"omitempty,oneof=SUPPORT DEVELOPMENT SALES"`
	AssignedToID *string                `json:"assigned_to_id"`
	Comment      string                 `json:"comment"`
	Attachments  []AttachmentRequest    `json:"attachments" validate:"dive"`
	IsInternal   bool                   `json:"is_internal"`
	Notify       bool                   `json:"notify"`
}

// TicketResponse is a ticket row with display names when known.
type TicketResponse struct {
	ID                     string                `json:"id"`
	Folio                  string                `json:"folio"`
	Title                  string                `json:"title"`
	Description            string                `json:"description,omitempty"`
	Category               domain.TicketCategory `json:"category"`
	Priority               domain.TicketPriority `json:"priority"`
	Status                 domain.TicketStatus   `json:"status"`
	ClientOrganizationID   string                `json:"client_organization_id"`
	ClientName             string                `json:"client_name,omitempty"`
	CreatorID              string                `json:"creator_id"`
	CreatorName            string                `json:"creator_name,omitempty"`
	CreatedByID            string                `json:"created_by_id"`
	AssignedToID           *string               `json:"assigned_to_id"`
	AssignedToName         *string               `json:"assigned_to_name,omitempty"`
	ProviderOrganizationID string                `json:"provider_organization_id"`
	Attachments            []domain.Attachment   `json:"attachments"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a bare ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return TicketResponse{
		ID:                     t.ID,
		Folio:                  t.Folio,
		Title:                  t.Title,
		Description:            t.Description,
		Category:               t.Category,
		Priority:               t.Priority,
		Status:                 t.Status,
		ClientOrganizationID:   t.ClientOrganizationID,
		CreatorID:              t.CreatorID,
		CreatedByID:            t.CreatedByID,
		AssignedToID:           t.AssignedToID,
		ProviderOrganizationID: t.ProviderOrganizationID,
		Attachments:            attachments,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// NewTicketViewResponse maps a joined list row. Descriptions are omitted from lists.
func NewTicketViewResponse(v *domain.TicketView) TicketResponse {
	resp := NewTicketResponse(&v.Ticket)
	resp.Description = ""
	resp.ClientName = v.ClientName
	resp.CreatorName = v.CreatorName
	resp.AssignedToName = v.AssignedToName
	return resp
}

// NewTicketViewResponses maps a slice of list rows.
func NewTicketViewResponses(views []domain.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, NewTicketViewResponse(&views[i]))
	}
	return out
}

// HistoryEntryResponse is one timeline entry.
type HistoryEntryResponse struct {
	ID                   string                 `json:"id"`
	AuthorUserID         string                 `json:"author_user_id"`
	AuthorName           string                 `json:"author_name,omitempty"`
	SnapshotStatus       domain.TicketStatus    `json:"snapshot_status"`
	SnapshotPriority     *domain.TicketPriority `json:"snapshot_priority,omitempty"`
	SnapshotCategory     *domain.TicketCategory `json:"snapshot_category,omitempty"`
	SnapshotAssignedToID *string                `json:"snapshot_assigned_to_id,omitempty"`
	Comment              *string                `json:"comment,omitempty"`
	Attachments          []domain.Attachment    `json:"attachments"`
	IsInternal           bool                   `json:"is_internal"`
	CreatedAt            time.Time              `json:"created_at"`
}

// NewHistoryEntryResponse maps a history entry.
func NewHistoryEntryResponse(e *domain.TicketHistoryEntry, authorName string) HistoryEntryResponse {
	attachments := e.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return HistoryEntryResponse{
		ID:                   e.ID,
		AuthorUserID:         e.AuthorUserID,
		AuthorName:           authorName,
		SnapshotStatus:       e.SnapshotStatus,
		SnapshotPriority:     e.SnapshotPriority,
		SnapshotCategory:     e.SnapshotCategory,
		SnapshotAssignedToID: e.SnapshotAssignedToID,
		Comment:              e.Comment,
		Attachments:          attachments,
		IsInternal:           e.IsInternal,
		CreatedAt:            e.CreatedAt,
	}
}

// TicketDetailResponse provides full ticket info with its visible timeline.
type TicketDetailResponse struct {
	TicketResponse
	CreatorEmail string                 `json:"creator_email,omitempty"`
	History      []HistoryEntryResponse `json:"history"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Items        []TicketResponse              `json:"items"`
	Total        int64                         `json:"total"`
	Page         int                           `json:"page"`
	PageSize     int                           `json:"page_size"`
	StatusCounts map[domain.TicketStatus]int64 `json:"status_counts"`
}

// UpdateResponse is returned by status moves and management updates.
type UpdateResponse struct {
	Ticket TicketResponse        `json:"ticket"`
	Entry  *HistoryEntryResponse `json:"entry"`
}
