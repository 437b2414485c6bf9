package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartActivityLogger writes one structured log line per ticket event so
// operators can follow ticket activity without reading the history table.
func StartActivityLogger(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	handler := func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("folio", event.Folio),
			zap.String("actor_id", event.Actor.UserID),
			zap.String("actor_role", string(event.Actor.Role)),
		}
		switch payload := event.Payload.(type) {
		case events.TicketCreatedPayload:
			fields = append(fields, zap.String("category", string(payload.Category)), zap.String("priority", string(payload.Priority)))
		case events.TicketUpdatedPayload:
			fields = append(fields,
				zap.String("old_status", string(payload.OldStatus)),
				zap.String("new_status", string(payload.NewStatus)),
				zap.Bool("internal", payload.IsInternal))
		case events.TicketStatusMovedPayload:
			fields = append(fields, zap.String("old_status", string(payload.OldStatus)), zap.String("new_status", string(payload.NewStatus)))
			if payload.AssignedToID != nil {
				fields = append(fields, zap.String("assigned_to_id", *payload.AssignedToID))
			}
		}
		logger.Info("ticket activity", fields...)
		return nil
	}
	for _, eventType := range []events.EventType{events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketStatusMoved} {
		dispatcher.Subscribe(eventType, handler)
	}
}
