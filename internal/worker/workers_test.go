package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

func TestActivityLoggerRecordsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	StartActivityLogger(dispatcher, zap.New(core))

	assignee := "staff-1"
	dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventTicketStatusMoved,
		TicketID: "ticket-1",
		Folio:    "S-000001",
		Actor:    events.Actor{UserID: "staff-2", Role: domain.RoleSupport},
		Payload: events.TicketStatusMovedPayload{
			OldStatus:    domain.TicketStatusPending,
			NewStatus:    domain.TicketStatusEscalated,
			AssignedToID: &assignee,
		},
	})

	entries := logs.FilterMessage("ticket activity").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "S-000001", ctx["folio"])
	assert.Equal(t, "ESCALATED", ctx["new_status"])
	assert.Equal(t, "staff-1", ctx["assigned_to_id"])
}
