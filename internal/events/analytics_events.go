package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of analytics events
type EventType string

const (
	// Flow events
	EventAssessmentTimeExceeded EventType = "flow.time_exceeded"

	// Submission events
	EventSubmissionGraded EventType = "submission.graded"

	// Aggregate events
	EventAggregateUpdated EventType = "analytics.aggregate_updated"
	EventAggregateFailed  EventType = "analytics.aggregate_failed"
)

const (
	eventSource  = "assessment-core"
	eventVersion = "1.0"
)

// Event is the envelope for everything published on the analytics topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type TimeExceededEvent struct {
	UserID         string    `json:"user_id"`
	ExamInstanceID string    `json:"exam_instance_id"`
	ServerNow      time.Time `json:"server_now"`
	Deadline       time.Time `json:"deadline"`
}

type SubmissionGradedEvent struct {
	SubmissionID   string  `json:"submission_id"`
	UserID         string  `json:"user_id"`
	ExamInstanceID string  `json:"exam_instance_id"`
	ExamTemplateID string  `json:"exam_template_id"`
	Marks          float64 `json:"marks"`
	MaxMarks       float64 `json:"max_marks"`
	Rank           int     `json:"rank"`
	Percentile     float64 `json:"percentile"`
}

type AggregateUpdatedEvent struct {
	Kind          string `json:"kind"`
	EntityID      string `json:"entity_id"`
	Applied       int    `json:"applied"`
	Skipped       int    `json:"skipped"`
	TotalAttempts int    `json:"total_attempts"`
}

type AggregateFailedEvent struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	Pending  int    `json:"pending"`
	Error    string `json:"error"`
}

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewTimeExceededEvent(userID, examInstanceID string, serverNow, deadline time.Time) *Event {
	return newEvent(EventAssessmentTimeExceeded, TimeExceededEvent{
		UserID:         userID,
		ExamInstanceID: examInstanceID,
		ServerNow:      serverNow,
		Deadline:       deadline,
	})
}

func NewSubmissionGradedEvent(data SubmissionGradedEvent) *Event {
	return newEvent(EventSubmissionGraded, data)
}

func NewAggregateUpdatedEvent(data AggregateUpdatedEvent) *Event {
	return newEvent(EventAggregateUpdated, data)
}

func NewAggregateFailedEvent(data AggregateFailedEvent) *Event {
	return newEvent(EventAggregateFailed, data)
}

// PartitionKey groups events that must stay ordered on the topic: all updates
// of one aggregate, or all events of one exam instance.
func (e *Event) PartitionKey() string {
	switch d := e.Data.(type) {
	case AggregateUpdatedEvent:
		return d.Kind + ":" + d.EntityID
	case AggregateFailedEvent:
		return d.Kind + ":" + d.EntityID
	case SubmissionGradedEvent:
		return d.ExamInstanceID
	case TimeExceededEvent:
		return d.ExamInstanceID
	default:
		return e.ID
	}
}

// GenerateEventID returns a unique event id.
func GenerateEventID() string {
	return uuid.NewString()
}
