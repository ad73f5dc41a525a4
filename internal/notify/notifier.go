// Package notify publishes booking events to the realtime channel. The
// frontend's socket layer joins a room per event ("event-{id}"); user
// toasts come from a shared user-notification stream. Delivery is fire
// and forget: failures are logged here and never reach the ledger.
package notify

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

const (
	UserNotificationTopic = "user-notifications"

	typeTicketPurchased = "ticket_purchased"
	typeTicketRejected  = "ticket_purchase_rejected"
	typeTicketCancelled = "ticket_cancelled"
)

// RoomTopic is the broadcast channel for one event's room.
func RoomTopic(eventID string) string {
	return "event-" + eventID
}

type Publisher struct {
	pub    message.Publisher
	logger logrus.FieldLogger
}

func NewPublisher(pub message.Publisher, logger logrus.FieldLogger) *Publisher {
	return &Publisher{pub: pub, logger: logger}
}

func (p *Publisher) TicketPurchased(ctx context.Context, msg domain.TicketPurchased) {
	p.publish(ctx, RoomTopic(msg.EventID), typeTicketPurchased, msg.UserID, msg)
	p.publish(ctx, UserNotificationTopic, typeTicketPurchased, msg.UserID, msg)
}

func (p *Publisher) PurchaseRejected(ctx context.Context, msg domain.TicketPurchaseRejected) {
	p.publish(ctx, UserNotificationTopic, typeTicketRejected, msg.UserID, msg)
}

func (p *Publisher) TicketCancelled(ctx context.Context, msg domain.TicketCancelled) {
	p.publish(ctx, RoomTopic(msg.EventID), typeTicketCancelled, msg.UserID, msg)
	p.publish(ctx, UserNotificationTopic, typeTicketCancelled, msg.UserID, msg)
}

func (p *Publisher) publish(_ context.Context, topic, msgType, userID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("marshal notification")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set("type", msgType)
	msg.Metadata.Set("user_id", userID)

	if err := p.pub.Publish(topic, msg); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"topic": topic,
			"type":  msgType,
		}).Error("publish notification")
	}
}

// Nop drops every notification. Used when no broker is configured.
type Nop struct{}

func (Nop) TicketPurchased(context.Context, domain.TicketPurchased)         {}
func (Nop) PurchaseRejected(context.Context, domain.TicketPurchaseRejected) {}
func (Nop) TicketCancelled(context.Context, domain.TicketCancelled)         {}
