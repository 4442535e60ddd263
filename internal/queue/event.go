// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditRecordedEvent is published after an audit row commits. It carries
// enough for downstream consumers (billing, analytics, alerting on denial
// spikes) to act without querying the primary database. The durable
// api_requests row remains the record of truth.
type AuditRecordedEvent struct {
	RequestID  string  `json:"request_id"`
	Endpoint   string  `json:"endpoint"`
	Method     string  `json:"method"`
	Outcome    string  `json:"outcome"`
	UserID     *string `json:"user_id,omitempty"`
	JokeID     *string `json:"joke_id,omitempty"`
	RecordedAt string  `json:"recorded_at"`
}
