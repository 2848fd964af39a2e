package form

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"churchadmin/internal/core"
)

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func sameValue(a, b url.Values, key string) bool {
	x, y := a[key], b[key]
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// ValuesFromRecord seeds an update form with the stored record data.
func ValuesFromRecord(s *Schema, r core.Record) url.Values {
	out := url.Values{}
	for _, f := range s.Fields {
		raw, ok := r.Data[f.Name]
		if !ok || raw == nil {
			continue
		}
		switch t := raw.(type) {
		case []any:
			for _, item := range t {
				out.Add(f.Name, fmt.Sprint(item))
			}
		case []string:
			out[f.Name] = append([]string(nil), t...)
		case bool:
			if t {
				out.Set(f.Name, "true")
			}
		case float64:
			out.Set(f.Name, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			out.Set(f.Name, r.Field(f.Name))
		}
	}
	if _, ok := s.Field("recordStatus"); ok {
		out.Set("recordStatus", string(r.Status))
	}
	return out
}

// Payload converts a validated DTO into the data map sent to the backend.
func Payload(dto any) (map[string]any, error) {
	b, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

// HiddenFields lists the schema fields that values hide, in schema order.
func HiddenFields(s *Schema, values url.Values) []string {
	visible := visibleValues(s, values)
	var out []string
	for _, f := range s.Fields {
		if !f.Visible(visible) {
			out = append(out, f.Name)
		}
	}
	return out
}

// ClearHidden marks every field hidden by values as cleared in an update
// payload. Without it a relation from a switched-off section would survive
// the merge on the backend.
func ClearHidden(s *Schema, values url.Values, payload map[string]any) {
	for _, name := range HiddenFields(s, values) {
		payload[name] = nil
	}
}
