package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"churchadmin/internal/core"
)

// ReportRequest asks the worker to export the records of one kind to the
// spreadsheet. It carries the search, not the rows; the worker reads the
// records itself.
type ReportRequest struct {
	ID          string            `json:"id"`
	Kind        core.Kind         `json:"kind"`
	Status      core.RecordStatus `json:"status,omitempty"`
	Term        string            `json:"term,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
	RequestedBy string            `json:"requestedBy,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewReportRequest creates a request with a fresh ID.
func NewReportRequest(kind core.Kind, requestedBy string) *ReportRequest {
	return &ReportRequest{
		ID:          uuid.NewString(),
		Kind:        kind,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
}

// Query is the backend search behind the request.
func (m *ReportRequest) Query() core.SearchQuery {
	return core.SearchQuery{Term: m.Term, Status: m.Status, Filters: m.Filters}
}

func (m *ReportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestFromJSON decodes a message and rejects unknown kinds.
func ReportRequestFromJSON(data []byte) (*ReportRequest, error) {
	var msg ReportRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	k, err := core.ParseKind(string(msg.Kind))
	if err != nil {
		return nil, fmt.Errorf("report request %s: %w", msg.ID, err)
	}
	msg.Kind = k
	return &msg, nil
}
