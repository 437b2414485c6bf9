package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
)

const (
	notificationTicketCreated = "ticket_created"
	notificationTicketUpdated = "ticket_updated"
)

// NotificationService turns ticket events into best-effort emails. Sends run
// detached from the request; failures are logged and counted, never returned.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	metrics    *observability.Metrics
	logger     *zap.Logger
	publicURL  string
	timeout    time.Duration
	inflight   sync.WaitGroup
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Mailer      notify.Mailer
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	PublicURL   string
	SendTimeout time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		publicURL:  strings.TrimRight(deps.PublicURL, "/"),
		timeout:    deps.SendTimeout,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.timeout <= 0 {
		n.timeout = 10 * time.Second
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

// Wait blocks until every in-flight send has finished.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.Requester.Email == "" {
		return nil
	}
	msg, err := notify.RenderTicketCreated(payload.Requester.Email, notify.TicketCreatedData{
		RequesterName:   payload.Requester.Name,
		Folio:           event.Folio,
		Title:           payload.Title,
		Category:        string(payload.Category),
		Priority:        string(payload.Priority),
		AttachmentNames: payload.AttachmentNames,
		TicketURL:       n.ticketURL(event.TicketID),
	})
	if err != nil {
		return err
	}
	n.sendDetached(notificationTicketCreated, event, msg)
	return nil
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !payload.Notify || payload.IsInternal || payload.Requester.Email == "" {
		return nil
	}
	msg, err := notify.RenderTicketUpdated(payload.Requester.Email, notify.TicketUpdatedData{
		RequesterName: payload.Requester.Name,
		Folio:         event.Folio,
		Title:         payload.Title,
		Status:        string(payload.NewStatus),
		UpdatedBy:     event.Actor.Name,
		CommentHTML:   payload.CommentHTML,
		TicketURL:     n.ticketURL(event.TicketID),
	})
	if err != nil {
		return err
	}
	n.sendDetached(notificationTicketUpdated, event, msg)
	return nil
}

// sendDetached delivers msg on its own goroutine with a bounded timeout that
// does not inherit the request's cancellation.
func (n *NotificationService) sendDetached(kind string, event events.Event, msg notify.Message) {
	if n.mailer == nil {
		return
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				n.metrics.NotificationResult(kind, "failed")
				n.logger.Error("notification panicked", zap.Any("panic", r), zap.String("ticket_id", event.TicketID))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.mailer.Send(ctx, msg); err != nil {
			n.metrics.NotificationResult(kind, "failed")
			n.logger.Warn("notification failed",
				zap.String("kind", kind),
				zap.String("ticket_id", event.TicketID),
				zap.String("folio", event.Folio),
				zap.String("to", msg.To),
				zap.Error(err))
			return
		}
		n.metrics.NotificationResult(kind, "sent")
		n.logger.Debug("notification sent",
			zap.String("kind", kind),
			zap.String("ticket_id", event.TicketID),
			zap.String("to", msg.To))
	}()
}

func (n *NotificationService) ticketURL(ticketID string) string {
	if n.publicURL == "" {
		return ""
	}
	return n.publicURL + "/tickets/" + ticketID
}
