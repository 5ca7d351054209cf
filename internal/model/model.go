// Package model defines the core domain types shared by the activities API
// and the board that renders it.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Activity is a named, scheduled offering with a participant capacity and roster.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns capacity minus current participant count.
// The result is not clamped: an over-subscribed record yields a negative value.
func (a *Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// IsFull returns true when no spots remain.
func (a *Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// HasParticipant reports whether email is on the roster.
func (a *Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// Catalog is the full set of activities in the order the server lists them.
// On the wire it is a JSON object keyed by activity name.
type Catalog []Activity

// Find returns the activity with the given name.
func (c Catalog) Find(name string) (*Activity, bool) {
	for i := range c {
		if c[i].Name == name {
			return &c[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy, so callers can hand out a catalog without
// sharing participant slices. A missing roster comes back empty, not nil.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, a := range c {
		roster := make([]string, len(a.Participants))
		copy(roster, a.Participants)
		a.Participants = roster
		out[i] = a
	}
	return out
}

// activityJSON is the wire form of a single catalog entry. Every field is
// kept raw and interpreted leniently: servers may omit fields or send values
// of an unexpected type.
type activityJSON struct {
	Description     json.RawMessage `json:"description"`
	Schedule        json.RawMessage `json:"schedule"`
	MaxParticipants json.RawMessage `json:"max_participants"`
	Participants    json.RawMessage `json:"participants,omitempty"`
}

// MarshalJSON encodes the catalog as an object, preserving order.
func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		participants := a.Participants
		if participants == nil {
			participants = []string{}
		}
		val, err := json.Marshal(struct {
			Description     string   `json:"description"`
			Schedule        string   `json:"schedule"`
			MaxParticipants int      `json:"max_participants"`
			Participants    []string `json:"participants"`
		}{a.Description, a.Schedule, a.MaxParticipants, participants})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a catalog object, keeping the server's key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode catalog: expected object, got %v", tok)
	}

	out := Catalog{}
	seen := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode catalog key: %w", err)
		}
		name, _ := tok.(string)

		var raw activityJSON
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode activity %q: %w", name, err)
		}
		a := Activity{
			Name:            name,
			Description:     textValue(raw.Description),
			Schedule:        textValue(raw.Schedule),
			MaxParticipants: capacityValue(raw.MaxParticipants),
			Participants:    NormalizeParticipants(raw.Participants),
		}
		// A repeated key replaces the earlier entry and keeps its position.
		if i, ok := seen[name]; ok {
			out[i] = a
			continue
		}
		seen[name] = len(out)
		out = append(out, a)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}

	*c = out
	return nil
}

// NormalizeParticipants turns a raw participants field into a roster.
// Absent, null or non-array values yield an empty roster. Non-string array
// elements are kept as their JSON text.
func NormalizeParticipants(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, elementText(item))
	}
	return out
}

// elementText returns a JSON string's value, or the raw JSON text of any
// other value, null included.
func elementText(item json.RawMessage) string {
	if len(item) > 0 && item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			return s
		}
	}
	return string(item)
}

// textValue reads a description or schedule. Absent and null are empty;
// other non-string values are kept as their JSON text.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return elementText(raw)
}

// capacityValue reads max_participants. Fractional numbers are truncated
// toward zero; anything that is not a number counts as zero capacity.
func capacityValue(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// MessageResponse is the success body of the signup and unregister endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
