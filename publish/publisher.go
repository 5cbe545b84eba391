package publish

import (
	"context"

	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
)

// bufferSize is the default buffer size for channels.
const bufferSize = 64

// PublisherConfig represents the event publisher configuration.
type PublisherConfig struct {
	// Sink consumes published events.
	Sink func(event *shared.Event) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Publisher serializes domain events through a single consumer so subscribers never
// observe events from successive ticks interleaved.
type Publisher struct {
	cfg    *PublisherConfig
	events chan *shared.Event
}

// NewPublisher initializes a new event publisher.
func NewPublisher(cfg *PublisherConfig) *Publisher {
	return &Publisher{
		cfg:    cfg,
		events: make(chan *shared.Event, bufferSize),
	}
}

// Publish relays the provided event for delivery. Invalid events are rejected at the
// boundary.
func (p *Publisher) Publish(event *shared.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	select {
	case p.events <- event:
		// do nothing.
	default:
		p.cfg.Logger.Error().Msgf("events channel at capacity: %d/%d",
			len(p.events), bufferSize)
	}

	return nil
}

// handleEvent delivers the provided event to the sink. Delivery runs on the consumer
// goroutine so ordering is preserved.
func (p *Publisher) handleEvent(event *shared.Event) {
	if err := p.cfg.Sink(event); err != nil {
		p.cfg.Logger.Error().Msgf("delivering %s event: %v", event.Type.String(), err)
	}
}

// Run manages the lifecycle processes of the publisher.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case event := <-p.events:
			p.handleEvent(event)
		case <-ctx.Done():
			// Drain pending events before shutting down.
			for {
				select {
				case event := <-p.events:
					p.handleEvent(event)
				default:
					return
				}
			}
		}
	}
}
