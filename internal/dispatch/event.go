package dispatch

import (
	"encoding/json"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/pkg/errors"
)

var urgencies = map[string]bool{"": true, "very-low": true, "low": true, "normal": true, "high": true}

// Event is one notification to fan out.
type Event struct {
	// ID is passed to every delivery so receivers can drop duplicates.
	// Dispatch generates one when empty.
	ID      string
	Rule    Rule
	Payload json.RawMessage
	// Deadline bounds the whole dispatch. Zero means no deadline.
	Deadline time.Time

	TTL         time.Duration
	Urgency     string
	CollapseKey string
}

func (e Event) Validate() error {
	if e.Rule == nil {
		return errors.Wrap(apperrors.ErrInvalidEvent, "rule is required")
	}
	if err := e.Rule.Validate(); err != nil {
		return err
	}
	if len(e.Payload) == 0 {
		return errors.Wrap(apperrors.ErrInvalidEvent, "payload is required")
	}
	if !json.Valid(e.Payload) {
		return errors.Wrap(apperrors.ErrInvalidEvent, "payload must be valid JSON")
	}
	if e.TTL < 0 {
		return errors.Wrap(apperrors.ErrInvalidEvent, "ttl must not be negative")
	}
	if !urgencies[e.Urgency] {
		return errors.Wrapf(apperrors.ErrInvalidEvent, "unknown urgency %q", e.Urgency)
	}
	return nil
}

type eventJSON struct {
	ID          string          `json:"id"`
	Rule        json.RawMessage `json:"rule"`
	Payload     json.RawMessage `json:"payload"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	TimeoutMS   int64           `json:"timeout_ms,omitempty"`
	TTLSeconds  int64           `json:"ttl_seconds,omitempty"`
	Urgency     string          `json:"urgency,omitempty"`
	CollapseKey string          `json:"collapse_key,omitempty"`
}

// DecodeEvent parses the wire form of an event. A relative "timeout_ms" is
// turned into an absolute deadline from now; "deadline" wins when both are set.
func DecodeEvent(data []byte, now time.Time) (Event, error) {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, errors.Wrap(apperrors.ErrInvalidEvent, err.Error())
	}
	if len(raw.Rule) == 0 {
		return Event{}, errors.Wrap(apperrors.ErrInvalidEvent, "rule is required")
	}
	if raw.TimeoutMS < 0 || raw.TTLSeconds < 0 {
		return Event{}, errors.Wrap(apperrors.ErrInvalidEvent, "timeout_ms and ttl_seconds must not be negative")
	}

	rule, err := DecodeRule(raw.Rule)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		ID:          raw.ID,
		Rule:        rule,
		Payload:     raw.Payload,
		TTL:         time.Duration(raw.TTLSeconds) * time.Second,
		Urgency:     raw.Urgency,
		CollapseKey: raw.CollapseKey,
	}
	switch {
	case raw.Deadline != nil:
		ev.Deadline = *raw.Deadline
	case raw.TimeoutMS > 0:
		ev.Deadline = now.Add(time.Duration(raw.TimeoutMS) * time.Millisecond)
	}

	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
