package events

import "time"

// EventLeadCreated is emitted once per newly persisted lead.
const EventLeadCreated = "lead.created.v1"

type LeadCreatedV1 struct {
	EventID       string         `json:"event_id"`
	LeadID        string         `json:"lead_id"`
	CorrelationID string         `json:"correlation_id"`
	Name          string         `json:"name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Message       string         `json:"message,omitempty"`
	Source        string         `json:"source"`
	LeadSource    string         `json:"lead_source"`
	Score         int            `json:"score"`
	Qualification string         `json:"qualification"`
	Priority      string         `json:"priority"`
	Raw           map[string]any `json:"raw,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
