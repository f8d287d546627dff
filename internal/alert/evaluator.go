package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/sensorhub/sensorhub-core/internal/events"
)

// Evaluator checks every recorded reading against the rules and notifies on
// crossings. It is an events.Sink.
//
// A (rule, device) pair that fired is silent until the cooldown elapses,
// even if later readings keep crossing the threshold.
type Evaluator struct {
	rules    []Rule
	notifier Notifier
	cooldown time.Duration
	now      func() time.Time

	mu    sync.Mutex
	fired map[string]time.Time
}

// NewEvaluator creates an evaluator. A nil clock uses time.Now.
func NewEvaluator(rules []Rule, notifier Notifier, cooldown time.Duration, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		rules:    rules,
		notifier: notifier,
		cooldown: cooldown,
		now:      now,
		fired:    make(map[string]time.Time),
	}
}

// Name implements events.Sink.
func (e *Evaluator) Name() string { return "alerts" }

// Handle implements events.Sink. Only reading events are evaluated.
func (e *Evaluator) Handle(ctx context.Context, ev events.Event) error {
	if ev.Type != events.TypeReadingRecorded || ev.Reading == nil {
		return nil
	}
	reading := ev.Reading

	watching := lo.Filter(e.rules, func(r Rule, _ int) bool {
		return r.Applies(reading)
	})

	var errs []error
	for _, rule := range watching {
		a, crossed := rule.Check(reading)
		if !crossed || !e.claim(rule.Name, reading.DeviceID) {
			continue
		}
		if err := e.notifier.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// claim records a firing and reports whether the pair was outside its
// cooldown.
func (e *Evaluator) claim(rule, deviceID string) bool {
	key := rule + "\x00" + deviceID
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.fired[key]; ok && now.Sub(last) < e.cooldown {
		return false
	}
	e.fired[key] = now
	return true
}
