package publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
	r "github.com/gildedwren/storefront/internal/checkout/repository"
)

// OutboxRepo is the slice of the checkout repository the poller needs.
type OutboxRepo interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
	GetStuckSessions(ctx context.Context) ([]*d.CheckoutSession, error)
	EnqueueEvent(ctx context.Context, sessionID, eventType string, payload []byte) error
}

type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         OutboxRepo
	writer       EventWriter
}

func NewOutboxPoller(repo OutboxRepo, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-orders",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{time.Second * 5, time.Second, time.Second * 5, repo, w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		errPublish := p.publish(ctx, event)
		if errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		errMark := p.repo.MarkEventAsProcessed(ctx, event.ID)
		if errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

// recoverStuckSessions re-enqueues events for completed sessions that have no
// outbox row, so no paid order goes unpublished.
func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	sessions, err := p.repo.GetStuckSessions(ctx)
	if err != nil {
		log.Printf("failed to get stuck sessions: %v", err)
		return
	}
	for _, session := range sessions {
		log.Printf("recovering stuck checkout session: %v", session.ID)

		if session.Snapshot == nil || session.Shipping == nil {
			log.Printf("stuck session %v has no snapshot, skipping", session.ID)
			continue
		}

		payload, err := json.Marshal(d.OrderCompletedEvent{
			CheckoutID:      session.ID,
			Email:           session.Shipping.Email,
			Name:            session.Shipping.FullName(),
			Items:           session.Snapshot.Items,
			Totals:          session.Snapshot.Totals,
			Currency:        session.Snapshot.Currency,
			PaymentIntentID: session.PaymentIntent,
			CompletedAt:     session.UpdatedAt,
		})
		if err != nil {
			log.Printf("failed to marshal recovery payload for session %v: %v", session.ID, err)
			continue
		}

		if err := p.repo.EnqueueEvent(ctx, session.ID, "order.completed", payload); err != nil {
			log.Printf("failed to enqueue recovery event for session %v: %v", session.ID, err)
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event r.OutboxEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: event.Payload,
	})
}
