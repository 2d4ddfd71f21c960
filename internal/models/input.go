package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional distinguishes an absent JSON field from an explicit null.
// Set is true when the key was present; Null is true when its value was null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	if t, ok := any(&o.Value).(*time.Time); ok {
		return unmarshalTimestamp(data, t)
	}
	return json.Unmarshal(data, &o.Value)
}

// dateLayout is the date-only form accepted for scheduledAt. It decodes to
// midnight UTC.
const dateLayout = "2006-01-02"

// unmarshalTimestamp decodes an RFC 3339 timestamp, falling back to a bare
// date. The RFC 3339 error is returned when neither form matches.
func unmarshalTimestamp(data []byte, t *time.Time) error {
	err := json.Unmarshal(data, t)
	if err == nil {
		return nil
	}
	var s string
	if json.Unmarshal(data, &s) != nil {
		return err
	}
	d, perr := time.Parse(dateLayout, s)
	if perr != nil {
		return err
	}
	*t = d
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns nil for absent or null values, otherwise a pointer to a copy.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// CreateContentInput is the request body accepted by POST /api/content.
type CreateContentInput struct {
	Title        string        `json:"title"`
	Brief        *string       `json:"brief"`
	Status       ContentStatus `json:"status"`
	KanbanStage  KanbanStage   `json:"kanbanStage"`
	Platform     string        `json:"platform"`
	ScheduledAt  *time.Time    `json:"scheduledAt"`
	Intelligence *Intelligence `json:"intelligence"`
}

func (in *CreateContentInput) UnmarshalJSON(data []byte) error {
	type plain CreateContentInput
	aux := struct {
		*plain
		ScheduledAt json.RawMessage `json:"scheduledAt"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	in.ScheduledAt = nil
	raw := bytes.TrimSpace(aux.ScheduledAt)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var at time.Time
	if err := unmarshalTimestamp(raw, &at); err != nil {
		return err
	}
	in.ScheduledAt = &at
	return nil
}

// UpdateContentInput is the partial body accepted by PATCH /api/content/:id.
// Nil pointers and unset Optionals leave the stored value untouched.
type UpdateContentInput struct {
	Title        *string                `json:"title,omitempty"`
	Brief        Optional[string]       `json:"brief"`
	Status       *ContentStatus         `json:"status,omitempty"`
	KanbanStage  *KanbanStage           `json:"kanbanStage,omitempty"`
	Platform     *string                `json:"platform,omitempty"`
	ScheduledAt  Optional[time.Time]    `json:"scheduledAt"`
	Intelligence Optional[Intelligence] `json:"intelligence"`
}

// MarshalJSON emits only the fields that were set, so a PATCH body never
// clears columns the caller did not mention.
func (in UpdateContentInput) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if in.Title != nil {
		body["title"] = *in.Title
	}
	if in.Brief.Set {
		body["brief"] = in.Brief
	}
	if in.Status != nil {
		body["status"] = *in.Status
	}
	if in.KanbanStage != nil {
		body["kanbanStage"] = *in.KanbanStage
	}
	if in.Platform != nil {
		body["platform"] = *in.Platform
	}
	if in.ScheduledAt.Set {
		body["scheduledAt"] = in.ScheduledAt
	}
	if in.Intelligence.Set {
		body["intelligence"] = in.Intelligence
	}
	return json.Marshal(body)
}

// Updates converts the input into a column map for the persistence layer.
func (in UpdateContentInput) Updates() map[string]any {
	updates := make(map[string]any)
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Brief.Set {
		updates["brief"] = in.Brief.Ptr()
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.KanbanStage != nil {
		updates["kanban_stage"] = *in.KanbanStage
	}
	if in.Platform != nil {
		updates["platform"] = *in.Platform
	}
	if in.ScheduledAt.Set {
		updates["scheduled_at"] = in.ScheduledAt.Ptr()
	}
	if in.Intelligence.Set {
		if in.Intelligence.Null {
			updates["intelligence"] = nil
		} else {
			updates["intelligence"] = NewIntelligence(in.Intelligence.Value)
		}
	}
	return updates
}
