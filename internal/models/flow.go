package models

import (
	"time"

	"gorm.io/datatypes"
)

// FlowEvent is one client-observed transition on a question. Time is the
// dwell duration in milliseconds since the previous event; EndTime is an
// absolute millisecond timestamp assigned during reconciliation.
type FlowEvent struct {
	ID            int     `json:"id" validate:"min=0"`
	SectionIndex  int     `json:"section_index" validate:"min=0"`
	QuestionIndex int     `json:"question_index" validate:"min=0"`
	Time          float64 `json:"time"`
	EndTime       float64 `json:"end_time"`
	Action        int     `json:"action"`
	State         int     `json:"state"`
	Response      *Answer `json:"response,omitempty"`
}

// SameQuestion reports whether both events refer to the same question.
func (e FlowEvent) SameQuestion(other FlowEvent) bool {
	return e.SectionIndex == other.SectionIndex && e.QuestionIndex == other.QuestionIndex
}

// Answer is a user response. Options carries selected option ids for choice
// questions, Value the entered number for range questions.
type Answer struct {
	Options []string `json:"options,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

func (a *Answer) IsEmpty() bool {
	return a == nil || (len(a.Options) == 0 && a.Value == nil)
}

// LiveAttempt tracks the exam a user is currently taking.
type LiveAttempt struct {
	UserID          string                         `json:"user_id" gorm:"primaryKey;size:64"`
	ExamInstanceID  *string                        `json:"exam_instance_id" gorm:"size:64;index"`
	ExamTemplateID  string                         `json:"exam_template_id" gorm:"size:64"`
	StartTime       time.Time                      `json:"start_time"`
	DurationSeconds int                            `json:"duration_seconds"`
	Flow            datatypes.JSONSlice[FlowEvent] `json:"flow" gorm:"type:jsonb"`
	DeviceID        string                         `json:"device_id" gorm:"size:128"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

func (LiveAttempt) TableName() string {
	return "live_attempts"
}

// IsActiveFor reports whether the attempt is running the given exam instance.
func (a *LiveAttempt) IsActiveFor(examInstanceID string) bool {
	return a.ExamInstanceID != nil && *a.ExamInstanceID == examInstanceID
}

// LastKnownTime is the end time of the last persisted event, or the exam
// start time in milliseconds when nothing has been persisted yet.
func (a *LiveAttempt) LastKnownTime() float64 {
	if n := len(a.Flow); n > 0 {
		return a.Flow[n-1].EndTime
	}
	return float64(a.StartTime.UnixMilli())
}

// Clear resets the attempt after submission.
func (a *LiveAttempt) Clear() {
	a.Flow = datatypes.JSONSlice[FlowEvent]{}
	a.ExamInstanceID = nil
}

// Response is the per-question view derived from a flow.
type Response struct {
	Sections []SectionResponse `json:"sections"`
}

type SectionResponse struct {
	Questions []QuestionResponse `json:"questions"`
}

type QuestionResponse struct {
	Answer *Answer `json:"answer,omitempty"`
	Time   float64 `json:"time"`
}

// Question returns the response for a question, or nil when out of range.
func (r *Response) Question(section, question int) *QuestionResponse {
	if r == nil || section < 0 || section >= len(r.Sections) {
		return nil
	}
	qs := r.Sections[section].Questions
	if question < 0 || question >= len(qs) {
		return nil
	}
	return &qs[question]
}
