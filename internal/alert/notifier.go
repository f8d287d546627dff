package alert

import (
	"context"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// EventType is the CloudEvents type of every alert notification.
const EventType = "sensorhub.alert.threshold"

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// CloudEventsNotifier POSTs each alert as a CloudEvent to every subscriber.
type CloudEventsNotifier struct {
	client      cloudevents.Client
	source      string
	subscribers []string
}

// NewNotifier creates an HTTP CloudEvents notifier.
//
// Parameters:
//   - source: CloudEvents source attribute
//   - subscribers: Endpoint URLs receiving every alert
func NewNotifier(source string, subscribers []string) (*CloudEventsNotifier, error) {
	if len(subscribers) == 0 {
		return nil, ErrNoSubscribers
	}

	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("creating cloudevents client: %w", err)
	}

	return &CloudEventsNotifier{
		client:      c,
		source:      source,
		subscribers: append([]string(nil), subscribers...),
	}, nil
}

// Notify sends a to each subscriber. Every subscriber is attempted; the
// returned error joins the failures.
func (n *CloudEventsNotifier) Notify(ctx context.Context, a Alert) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(n.source)
	event.SetType(EventType)
	event.SetSubject(a.DeviceID)
	event.SetTime(a.Time)
	if err := event.SetData(cloudevents.ApplicationJSON, a); err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	var errs []error
	for _, endpoint := range n.subscribers {
		result := n.client.Send(cloudevents.ContextWithTarget(ctx, endpoint), event)
		if !cloudevents.IsACK(result) {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, endpoint, result))
		}
	}
	return errors.Join(errs...)
}
