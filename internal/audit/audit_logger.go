package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/services"
)

type AuditEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	GroupID   int64     `json:"group_id"`
	TopicID   int64     `json:"topic_id"`
	CounterID int64     `json:"counter_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount,omitempty"`
	Total     int64     `json:"total,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per ledger outcome.
type AuditLogger struct {
	logf func(format string, v ...any)
	now  func() time.Time
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{
		logf: log.Printf,
		now:  time.Now,
	}
}

func (a *AuditLogger) LogOutcome(msg services.InboundMessage, outcome services.Outcome) {
	event := a.newEvent(msg)
	event.CounterID = outcome.CounterID

	switch {
	case outcome.Added():
		event.EventType = "ENTRY_ADDED"
		event.Amount = outcome.Delta
		event.Total = outcome.Total
		event.Status = "SUCCESS"
	case outcome.Removed():
		event.EventType = "ENTRY_RETRACTED"
		event.Amount = -outcome.Delta
		event.Total = outcome.Total
		event.Status = "SUCCESS"
	default:
		event.EventType = "MESSAGE_REJECTED"
		event.Status = "REJECTED"
		event.Details = map[string]string{"reason": string(outcome.Reason)}
	}
	a.log(event)
}

func (a *AuditLogger) LogError(msg services.InboundMessage, err error) {
	event := a.newEvent(msg)
	event.EventType = "ERROR"
	event.Status = "FAILED"
	event.Details = map[string]string{"error": err.Error()}
	a.log(event)
}

func (a *AuditLogger) newEvent(msg services.InboundMessage) AuditEvent {
	return AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: a.now(),
		GroupID:   msg.GroupID,
		TopicID:   msg.TopicID,
		UserID:    msg.UserID,
	}
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.logf("AUDIT: %s", string(data))
}
