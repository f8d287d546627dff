package alert

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
)

// Threshold directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// Rule fires when a reading of DataType crosses one of its thresholds.
// An empty DeviceID matches every device.
type Rule struct {
	Name     string
	DeviceID string
	DataType string
	Above    *float64
	Below    *float64
}

// Validate checks the rule can ever fire.
func (r Rule) Validate() error {
	if r.DataType == "" {
		return fmt.Errorf("%w: %q has no data_type", ErrInvalidRule, r.Name)
	}
	if r.Above == nil && r.Below == nil {
		return fmt.Errorf("%w: %q needs above or below", ErrInvalidRule, r.Name)
	}
	return nil
}

// Applies reports whether the rule watches this reading's device and type.
func (r Rule) Applies(reading *telemetry.Reading) bool {
	if reading.DataType != r.DataType {
		return false
	}
	return r.DeviceID == "" || r.DeviceID == reading.DeviceID
}

// Check returns the alert for value, or false if no threshold is crossed.
// Thresholds are exclusive: a value equal to the threshold does not fire.
func (r Rule) Check(reading *telemetry.Reading) (Alert, bool) {
	a := Alert{
		Rule:     r.Name,
		DeviceID: reading.DeviceID,
		DataType: reading.DataType,
		Value:    reading.Value,
		Time:     reading.Timestamp,
	}
	switch {
	case r.Above != nil && reading.Value > *r.Above:
		a.Threshold, a.Direction = *r.Above, DirectionAbove
	case r.Below != nil && reading.Value < *r.Below:
		a.Threshold, a.Direction = *r.Below, DirectionBelow
	default:
		return Alert{}, false
	}
	return a, true
}

// RulesFromConfig converts configured rules, naming unnamed ones by index.
func RulesFromConfig(cfgs []config.AlertRuleConfig) ([]Rule, error) {
	rules := lo.Map(cfgs, func(c config.AlertRuleConfig, i int) Rule {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i)
		}
		return Rule{Name: name, DeviceID: c.DeviceID, DataType: c.DataType, Above: c.Above, Below: c.Below}
	})
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// Alert is one threshold crossing.
type Alert struct {
	Rule      string    `json:"rule"`
	DeviceID  string    `json:"device_id"`
	DataType  string    `json:"data_type"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Direction string    `json:"direction"`
	Time      time.Time `json:"timestamp"`
}
