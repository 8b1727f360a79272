package crossing

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medref/medref/internal/platform/apperr"
)

const (
	StatusOpen       = "open"
	StatusClosed     = "closed"
	StatusRestricted = "restricted"
)

var validStatuses = map[string]bool{
	StatusOpen:       true,
	StatusClosed:     true,
	StatusRestricted: true,
}

// Crossing maps to the border_crossings table.
type Crossing struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	NameEn       string    `db:"name_en" json:"nameEn"`
	Status       string    `db:"status" json:"status"`
	WorkingHours *string   `db:"working_hours" json:"workingHours"`
	LastUpdate   time.Time `db:"last_update" json:"lastUpdate"`
	Notes        *string   `db:"notes" json:"notes"`
}

// OptionalString distinguishes an absent field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func Some(s string) OptionalString { return OptionalString{Set: true, Value: &s} }

// Patch holds the fields a partial update may change. Unset fields keep
// their stored values.
type Patch struct {
	Status       OptionalString
	WorkingHours OptionalString
	Notes        OptionalString
}

// ParsePatch decodes a JSON object into a Patch. Keys other than status,
// workingHours and notes are ignored. An empty body is an empty patch.
func ParsePatch(data []byte) (Patch, error) {
	var p Patch
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return p, apperr.Validation("request body must be a JSON object")
	}

	fields := []struct {
		key string
		dst *OptionalString
	}{
		{"status", &p.Status},
		{"workingHours", &p.WorkingHours},
		{"notes", &p.Notes},
	}
	for _, f := range fields {
		msg, ok := raw[f.key]
		if !ok {
			continue
		}
		var v *string
		if err := json.Unmarshal(msg, &v); err != nil {
			return Patch{}, apperr.Validation("field %s must be a string or null", f.key)
		}
		*f.dst = OptionalString{Set: true, Value: v}
	}
	return p, nil
}

// Apply copies the set fields of p onto c.
func (p Patch) Apply(c *Crossing) {
	if p.Status.Set && p.Status.Value != nil {
		c.Status = *p.Status.Value
	}
	if p.WorkingHours.Set {
		c.WorkingHours = p.WorkingHours.Value
	}
	if p.Notes.Set {
		c.Notes = p.Notes.Value
	}
}
