// Package ingest validates inbound schedule payloads and hands accepted
// schedules to the store. Raw payloads never reach the evaluator.
package ingest

import (
	"encoding/json"
	"strings"

	"github.com/sweeney/light-relay/internal/logic"
)

// Field names as they appear in errors and republished payloads.
const (
	FieldOnTime  = "on_time"
	FieldOffTime = "off_time"
)

// payload accepts both spellings used by clients: the broker message uses
// snake_case, the browser form sends camelCase.
type payload struct {
	OnTime       *string `json:"on_time"`
	OffTime      *string `json:"off_time"`
	OnTimeCamel  *string `json:"onTime"`
	OffTimeCamel *string `json:"offTime"`
	Timestamp    string  `json:"timestamp"`
	ID           string  `json:"id"`
}

// Update is a validated schedule together with the optional metadata the
// sender attached.
type Update struct {
	Schedule  logic.Schedule
	Timestamp string
	ID        string
}

// Parse validates raw and normalizes it into an Update. snake_case keys win
// when both spellings are present.
func Parse(raw []byte) (Update, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Update{}, &ParseError{Kind: MalformedEncoding, Err: err}
	}

	on, err := timeField(FieldOnTime, p.OnTime, p.OnTimeCamel)
	if err != nil {
		return Update{}, err
	}
	off, err := timeField(FieldOffTime, p.OffTime, p.OffTimeCamel)
	if err != nil {
		return Update{}, err
	}

	return Update{
		Schedule:  logic.Schedule{On: on, Off: off},
		Timestamp: p.Timestamp,
		ID:        p.ID,
	}, nil
}

func timeField(name string, values ...*string) (logic.TimeOfDay, error) {
	for _, v := range values {
		if v == nil || strings.TrimSpace(*v) == "" {
			continue
		}
		t, err := logic.ParseTimeOfDay(*v)
		if err != nil {
			return 0, &ParseError{Kind: InvalidTime, Field: name, Err: err}
		}
		return t, nil
	}
	return 0, &ParseError{Kind: MissingField, Field: name}
}

// Ingest is the boundary that accepts schedules into a store.
type Ingest struct {
	store *logic.Store
}

// New creates an Ingest writing to store.
func New(store *logic.Store) *Ingest {
	return &Ingest{store: store}
}

// Submit parses raw and, on success, replaces the stored schedule.
// On error the store is left untouched.
func (i *Ingest) Submit(raw []byte) (Update, error) {
	u, err := Parse(raw)
	if err != nil {
		return Update{}, err
	}
	i.store.Set(u.Schedule)
	return u, nil
}
