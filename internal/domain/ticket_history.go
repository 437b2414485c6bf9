package domain

import "time"

// TicketHistoryEntry is an immutable audit trail entry. Snapshot fields other
// than status are set only when the update that produced the entry changed them.
type TicketHistoryEntry struct {
	ID                   string
	TicketID             string
	AuthorUserID         string
	SnapshotStatus       TicketStatus
	SnapshotPriority     *TicketPriority
	SnapshotCategory     *TicketCategory
	SnapshotAssignedToID *string
	Comment              *string
	Attachments          []Attachment
	IsInternal           bool
	CreatedAt            time.Time
}
