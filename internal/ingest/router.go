package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/logging"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/mqtt"
)

// RouteKind tags each inbound route. The set is closed.
type RouteKind int

// Inbound route kinds.
const (
	RouteRegistration RouteKind = iota + 1
	RouteTelemetry
	RouteStatus
)

// String implements fmt.Stringer.
func (k RouteKind) String() string {
	switch k {
	case RouteRegistration:
		return "registration"
	case RouteTelemetry:
		return "telemetry"
	case RouteStatus:
		return "status"
	default:
		return fmt.Sprintf("RouteKind(%d)", int(k))
	}
}

func (k RouteKind) valid() bool {
	return k >= RouteRegistration && k <= RouteStatus
}

// Handler processes one inbound message. It returns a typed error and never
// logs; the router is the logging boundary.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Route binds a topic filter to its handler.
type Route struct {
	Kind    RouteKind
	Pattern string

	segments []string
	handler  Handler
}

// Subscriber is the transport side of Bind and Unbind. *mqtt.Client
// satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Router maps inbound topics to exactly one handler.
//
// Routes are registered once at startup; Register rejects any pattern that
// could match a topic another route already matches, so matching needs no
// precedence rules. The route table must not change after Bind.
type Router struct {
	routes []Route
	logger *logging.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Router{logger: logger.Component("ingest")}
}

// New creates a router with the three standard routes bound to rec and tel:
//
//	config             → registration
//	data/+             → telemetry
//	devices/+/status   → status
func New(rec *Reconciler, tel *Recorder, logger *logging.Logger) (*Router, error) {
	r := NewRouter(logger)
	for _, route := range []struct {
		kind    RouteKind
		pattern string
		handler Handler
	}{
		{RouteRegistration, mqtt.TopicRegistration, rec.HandleRegistration},
		{RouteTelemetry, mqtt.TopicTelemetryFilter, tel.HandleReading},
		{RouteStatus, mqtt.TopicStatusFilter, rec.HandleStatus},
	} {
		if err := r.Register(route.kind, route.pattern, route.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a route.
//
// Returns:
//   - ErrInvalidPattern: empty levels, '#' not last, or a wildcard mixed into a level
//   - ErrDuplicateRoute: kind already registered (or not a known kind)
//   - ErrAmbiguousRoute: pattern overlaps an existing route
func (r *Router) Register(kind RouteKind, pattern string, handler Handler) error {
	if !kind.valid() {
		return fmt.Errorf("%w: %v", ErrDuplicateRoute, kind)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrInvalidPattern, pattern)
	}

	segments, err := splitPattern(pattern)
	if err != nil {
		return err
	}

	for _, existing := range r.routes {
		if existing.Kind == kind {
			return fmt.Errorf("%w: %s", ErrDuplicateRoute, kind)
		}
		if overlaps(existing.segments, segments) {
			return fmt.Errorf("%w: %q overlaps %q (%s)", ErrAmbiguousRoute, pattern, existing.Pattern, existing.Kind)
		}
	}

	r.routes = append(r.routes, Route{
		Kind:     kind,
		Pattern:  pattern,
		segments: segments,
		handler:  handler,
	})
	return nil
}

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Bind subscribes each route's pattern with its own handler, so the
// transport delivers straight to the matching route.
func (r *Router) Bind(ctx context.Context, sub Subscriber, qos byte) error {
	for i := range r.routes {
		route := r.routes[i]
		err := sub.Subscribe(route.Pattern, qos, func(topic string, payload []byte) error {
			r.handle(ctx, route, topic, payload)
			return nil
		})
		if err != nil {
			return fmt.Errorf("binding %s route %q: %w", route.Kind, route.Pattern, err)
		}
		r.logger.Info("route bound", "route", route.Kind.String(), "pattern", route.Pattern)
	}
	return nil
}

// Unbind drops every route's subscription so no new messages arrive while
// the pipeline drains. Every pattern is attempted; the errors are joined.
func (r *Router) Unbind(sub Subscriber) error {
	var errs []error
	for _, route := range r.routes {
		if err := sub.Unsubscribe(route.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("unbinding %s route %q: %w", route.Kind, route.Pattern, err))
		}
	}
	return errors.Join(errs...)
}

// Match returns the route matching topic, if any.
func (r *Router) Match(topic string) (Route, bool) {
	levels := strings.Split(topic, "/")
	for _, route := range r.routes {
		if matches(route.segments, levels) {
			return route, true
		}
	}
	return Route{}, false
}

// Dispatch routes one message for transports that deliver through a single
// callback. Unmatched topics are dropped silently. Reports whether a route
// matched.
func (r *Router) Dispatch(ctx context.Context, topic string, payload []byte) bool {
	route, ok := r.Match(topic)
	if !ok {
		return false
	}
	r.handle(ctx, route, topic, payload)
	return true
}

// handle runs a route handler and logs its outcome. It is the only place
// ingestion failures are logged.
func (r *Router) handle(ctx context.Context, route Route, topic string, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("ingest handler panic recovered",
				"route", route.Kind.String(),
				"topic", topic,
				"panic", rec,
			)
		}
	}()

	err := route.handler(ctx, topic, payload)
	switch {
	case err == nil:
		r.logger.Debug("message handled", "route", route.Kind.String(), "topic", topic)
	case errors.Is(err, ErrUnknownDevice):
		r.logger.Debug("status for unregistered device ignored", "topic", topic, "error", err)
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, ErrMalformedTopic):
		r.logger.Warn("dropping malformed message",
			"route", route.Kind.String(),
			"topic", topic,
			"error", err,
		)
	default:
		r.logger.Error("ingest handler failed",
			"route", route.Kind.String(),
			"topic", topic,
			"error", err,
		)
	}
}

// splitPattern validates an MQTT topic filter and splits it into levels.
func splitPattern(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
			return nil, fmt.Errorf("%w: %q has an empty level", ErrInvalidPattern, pattern)
		case seg == "#":
			if i != len(segments)-1 {
				return nil, fmt.Errorf("%w: %q uses '#' before the last level", ErrInvalidPattern, pattern)
			}
		case seg == "+":
		case strings.ContainsAny(seg, "+#"):
			return nil, fmt.Errorf("%w: %q mixes a wildcard into level %q", ErrInvalidPattern, pattern, seg)
		}
	}
	return segments, nil
}

// matches reports whether a concrete topic matches a filter.
func matches(filter, topic []string) bool {
	for i, seg := range filter {
		if seg == "#" {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if seg != "+" && seg != topic[i] {
			return false
		}
	}
	return len(filter) == len(topic)
}

// overlaps reports whether some concrete topic matches both filters.
func overlaps(a, b []string) bool {
	for i := 0; ; i++ {
		aDone, bDone := i >= len(a), i >= len(b)
		if aDone && bDone {
			return true
		}
		if (!aDone && a[i] == "#") || (!bDone && b[i] == "#") {
			return true
		}
		if aDone || bDone {
			return false
		}
		if a[i] != b[i] && a[i] != "+" && b[i] != "+" {
			return false
		}
	}
}
