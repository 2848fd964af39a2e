package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is the backend-owned envelope for every entity. Entity attributes
// live in Data keyed by their form field names.
type Record struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Status        RecordStatus   `json:"recordStatus"`
	Data          map[string]any `json:"data"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	InactivatedAt *time.Time     `json:"inactivatedAt,omitempty"`
}

// Field returns the string form of a data attribute. The envelope keys id
// and recordStatus are also addressable so tables can show them.
func (r Record) Field(key string) string {
	switch key {
	case "id":
		return r.ID
	case "recordStatus":
		return string(r.Status)
	case "createdAt":
		return r.CreatedAt.Format(time.DateOnly)
	case "updatedAt":
		return r.UpdatedAt.Format(time.DateOnly)
	}
	v, ok := r.Data[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// DisplayName is the label used when the record appears as a relation option.
func (r Record) DisplayName() string {
	if r.Kind.DisplayField() == "fullName" {
		if n := strings.TrimSpace(r.Field("firstNames") + " " + r.Field("lastNames")); n != "" {
			return n
		}
	}
	if v := r.Field(r.Kind.DisplayField()); v != "" {
		return v
	}
	return r.ID
}

// Active reports whether the record has not been inactivated.
func (r Record) Active() bool {
	return r.Status != StatusInactive
}

// SearchQuery is the backend search request behind list pages, relation
// options and reports.
type SearchQuery struct {
	Term   string
	Status RecordStatus
	// Filters match data fields exactly, e.g. {"theirZone": "<id>"}.
	Filters map[string]string
	Limit   int
	Offset  int
}

// TakeStatus removes the recordStatus key from a write payload and returns
// the requested status, if any.
func TakeStatus(data map[string]any) (RecordStatus, bool) {
	raw, ok := data["recordStatus"]
	if !ok {
		return "", false
	}
	delete(data, "recordStatus")
	s, _ := raw.(string)
	st := RecordStatus(s)
	return st, st.Label() != ""
}

// MergeData applies a write payload to stored data. A nil value clears the
// key, which is how updates drop fields hidden by the submitted values.
func MergeData(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}
