// Package dispatchevents publishes one Kafka message per answered route query.
package dispatchevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
)

type Event struct {
	Category   string    `json:"category"`
	Lon        float64   `json:"lon"`
	Lat        float64   `json:"lat"`
	Cell       string    `json:"cell,omitempty"`
	Status     string    `json:"status"`
	FacilityID string    `json:"facility_id,omitempty"`
	Weight     float64   `json:"weight"`
	LengthM    float64   `json:"length_m"`
	TS         time.Time `json:"ts"`
}

// FromResult builds the event for a computed route.
func FromResult(res model.RouteResult, cell string, ts time.Time) Event {
	ev := Event{
		Category: res.Category.String(),
		Lon:      res.Incident.X,
		Lat:      res.Incident.Y,
		Cell:     cell,
		Status:   string(res.Status),
		Weight:   res.Weight,
		LengthM:  res.LengthMeters,
		TS:       ts.UTC(),
	}
	if res.Facility != nil {
		ev.FacilityID = res.Facility.ID
	}
	return ev
}

// Sink accepts events without blocking the caller.
type Sink interface {
	Publish(ev Event)
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
}

var _ Sink = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("dispatchevents: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, logger), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     logger.With("component", "dispatchevents"),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("marshal event", "err", err)
				observability.IncDispatchEvent("marshal_error")
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Category),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("producer error", "err", err)
				observability.IncDispatchEvent("producer_error")
			}
		}
	}()

	return p
}

// Publish enqueues ev or drops it when the queue is full.
func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
		observability.IncDispatchEvent("enqueued")
	default:
		observability.IncDispatchEvent("dropped")
	}
}

// Close drains queued events into the producer and closes it.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("dispatchevents: close producer: %w", err)
	}
	return nil
}
