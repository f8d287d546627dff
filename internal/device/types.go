package device

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Presence values the core itself writes. Devices may report any other
// string on their status topic and it is stored verbatim.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// Device is one row of the registry (table client), keyed by DeviceID.
//
// A registration replaces every mutable field; a status event touches only
// Status and LastSeen.
type Device struct {
	// ID is the surrogate row id assigned by the store.
	ID int64 `json:"id"`

	DeviceID string `json:"device_id"`
	Name     string `json:"device_name"`
	SSID     string `json:"ssid"`
	IP       string `json:"ip"`

	// PubTopic and SubTopic are what the device reported; routing never uses them.
	PubTopic string `json:"pub_topic"`
	SubTopic string `json:"sub_topic"`

	Status    string     `json:"status"`
	DataTypes StringList `json:"data_types"`
	Commands  StringList `json:"commands"`

	// TypeOfCommands classifies Commands position by position.
	// Nil means the device did not send one.
	TypeOfCommands StringList `json:"type_of_commands"`

	RecevComands string    `json:"recev_comands"`
	LastSeen     time.Time `json:"last_seen"`
}

// HasCommands reports whether the device advertises at least one command.
func (d *Device) HasCommands() bool {
	return len(d.Commands) > 0
}

// CommandTypes returns TypeOfCommands, falling back to Commands when the
// device did not classify them.
func (d *Device) CommandTypes() StringList {
	if d.TypeOfCommands != nil {
		return d.TypeOfCommands
	}
	return d.Commands
}

// StringList is a list of strings persisted as JSON text.
//
// When decoded from a device payload, scalar elements are coerced to strings:
// numbers keep their literal text, booleans become "true"/"false", and null
// elements are skipped. Nested arrays and objects are rejected.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: expected a JSON array", ErrInvalidList)
	}

	out := make(StringList, 0, len(raw))
	for i, elem := range raw {
		s, ok, err := scalarText(elem)
		if err != nil {
			return fmt.Errorf("%w: element %d: %w", ErrInvalidList, i, err)
		}
		if ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// scalarText renders a JSON scalar as text. ok is false for null.
func scalarText(elem json.RawMessage) (text string, ok bool, err error) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 {
		return "", false, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case 'n':
		return "", false, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	case '{', '[':
		return "", false, fmt.Errorf("nested values are not supported")
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	}
}

// MarshalJSON renders a nil list as [] so API consumers never see null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Value implements driver.Valuer; the list is stored as JSON text.
func (l StringList) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON text columns.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return l.decodeStored([]byte(v))
	case []byte:
		return l.decodeStored(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidList, src)
	}
}

func (l *StringList) decodeStored(data []byte) error {
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidList, err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
