package staging

import (
	"encoding/json"
	"fmt"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// CommittedValue reads a top-level field off the record's wire form.
func CommittedValue(e *model.EventRequest, field string) any {
	return committedValue(e, field)
}

// SetField writes a top-level field on the record through its wire form, so
// edits address fields by the same names the store patches with.
func SetField(e *model.EventRequest, field string, value any) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event request: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to unmarshal event request: %w", err)
	}
	m[field] = value

	patched, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal patched event request: %w", err)
	}
	var updated model.EventRequest
	if err := json.Unmarshal(patched, &updated); err != nil {
		return fmt.Errorf("failed to apply field %q: %w", field, err)
	}
	*e = updated
	return nil
}
