package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message")
		return nil
	}
}

func expectSilence(t *testing.T, ch <-chan *message.Message) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message on topic: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublisher_TicketPurchased(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx := context.Background()
	room, err := pubSub.Subscribe(ctx, RoomTopic("event-1"))
	require.NoError(t, err)
	user, err := pubSub.Subscribe(ctx, UserNotificationTopic)
	require.NoError(t, err)

	p := NewPublisher(pubSub, testLogger())
	p.TicketPurchased(ctx, domain.TicketPurchased{
		Header:    domain.EventHeader{ID: "msg-1", PublishedAt: time.Now()},
		EventID:   "event-1",
		UserID:    "user-1",
		TicketIDs: []string{"ticket-1", "ticket-2"},
		Quantity:  2,
	})

	for _, ch := range []<-chan *message.Message{room, user} {
		msg := receive(t, ch)
		assert.Equal(t, "ticket_purchased", msg.Metadata.Get("type"))
		assert.Equal(t, "user-1", msg.Metadata.Get("user_id"))

		var got domain.TicketPurchased
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "event-1", got.EventID)
		assert.Equal(t, 2, got.Quantity)
		assert.Len(t, got.TicketIDs, 2)
	}
}

func TestPublisher_PurchaseRejected(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx := context.Background()
	room, err := pubSub.Subscribe(ctx, RoomTopic("event-1"))
	require.NoError(t, err)
	user, err := pubSub.Subscribe(ctx, UserNotificationTopic)
	require.NoError(t, err)

	p := NewPublisher(pubSub, testLogger())
	p.PurchaseRejected(ctx, domain.TicketPurchaseRejected{
		Header:  domain.EventHeader{ID: "msg-1", PublishedAt: time.Now()},
		EventID: "event-1",
		UserID:  "user-1",
		Reason:  "sold_out",
	})

	msg := receive(t, user)
	assert.Equal(t, "ticket_purchase_rejected", msg.Metadata.Get("type"))

	var got domain.TicketPurchaseRejected
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "sold_out", got.Reason)

	// Rejections are personal; the room stays quiet.
	expectSilence(t, room)
}

func TestPublisher_TicketCancelled(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx := context.Background()
	room, err := pubSub.Subscribe(ctx, RoomTopic("event-1"))
	require.NoError(t, err)

	p := NewPublisher(pubSub, testLogger())
	p.TicketCancelled(ctx, domain.TicketCancelled{
		Header:   domain.EventHeader{ID: "msg-1", PublishedAt: time.Now()},
		EventID:  "event-1",
		UserID:   "user-1",
		TicketID: "ticket-1",
	})

	msg := receive(t, room)
	assert.Equal(t, "ticket_cancelled", msg.Metadata.Get("type"))

	var got domain.TicketCancelled
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "ticket-1", got.TicketID)
}

func TestPublisher_SwallowsBrokerErrors(t *testing.T) {
	t.Parallel()

	p := NewPublisher(failingPublisher{}, testLogger())

	// Must not panic or surface the failure.
	p.TicketPurchased(context.Background(), domain.TicketPurchased{EventID: "event-1", UserID: "user-1"})
}

func TestRoomTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "event-abc", RoomTopic("abc"))
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() error { return nil }
