package eventsrepo

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"shareit/model"
)

// Publisher emits booking lifecycle events for downstream consumers. Publish
// failures never fail the booking operation; the kafka implementation logs and
// moves on.
type Publisher interface {
	BookingCreated(ctx context.Context, b model.Booking)
	BookingDecided(ctx context.Context, b model.Booking)
}

type event struct {
	Event     string              `json:"event"`
	BookingID int64               `json:"booking_id"`
	ItemID    int64               `json:"item_id"`
	BookerID  int64               `json:"booker_id"`
	Status    model.BookingStatus `json:"status"`
	Start     time.Time           `json:"start"`
	End       time.Time           `json:"end"`
	At        time.Time           `json:"at"`
}

type kafkaPublisher struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewKafka(brokers []string, topic string, log *slog.Logger) Publisher {
	return &kafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		log: log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, b model.Booking) {
	p.publish(ctx, "booking.created", b)
}

func (p *kafkaPublisher) BookingDecided(ctx context.Context, b model.Booking) {
	p.publish(ctx, "booking.decided", b)
}

func (p *kafkaPublisher) publish(ctx context.Context, name string, b model.Booking) {
	payload, err := json.Marshal(event{
		Event:     name,
		BookingID: b.ID,
		ItemID:    b.ItemID,
		BookerID:  b.BookerID,
		Status:    b.Status,
		Start:     b.Start,
		End:       b.End,
		At:        time.Now().UTC(),
	})
	if err != nil {
		p.log.Error("event marshal", "event", name, "err", err)
		return
	}
	// Keyed by item so consumers see one item's events in order.
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(b.ItemID, 10)),
		Value: payload,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event publish", "event", name, "booking_id", b.ID, "err", err)
	}
}

// NewNoop is used when no broker is configured.
func NewNoop() Publisher { return noopPublisher{} }

type noopPublisher struct{}

func (noopPublisher) BookingCreated(context.Context, model.Booking) {}
func (noopPublisher) BookingDecided(context.Context, model.Booking) {}
