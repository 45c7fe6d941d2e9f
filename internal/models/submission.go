package models

import (
	"time"

	"gorm.io/datatypes"
)

// Three-state correctness shared by grading, ranking and analytics.
const (
	Unattempted = -1
	Incorrect   = 0
	Correct     = 1
)

type QuestionMeta struct {
	ID         string          `json:"id,omitempty"`
	Correct    int             `json:"correct"`
	Mark       float64         `json:"mark"`
	Time       float64         `json:"time"`
	Difficulty DifficultyLevel `json:"difficulty,omitempty"`
	// Excluded marks questions graded but left out of the section sum by a
	// question group.
	Excluded bool `json:"excluded,omitempty"`
}

func (q QuestionMeta) Attempted() bool {
	return q.Correct != Unattempted
}

type SectionMeta struct {
	Marks       float64        `json:"marks"`
	MarksGained float64        `json:"marks_gained"`
	MarksLost   float64        `json:"marks_lost"`
	MaxMarks    float64        `json:"max_marks"`
	Correct     int            `json:"correct"`
	Incorrect   int            `json:"incorrect"`
	Time        float64        `json:"time"`
	Included    bool           `json:"included"`
	Questions   []QuestionMeta `json:"questions"`
}

type TierStats struct {
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	Time          float64 `json:"time"`
	TotalAttempts int     `json:"total_attempts"`
}

// Accuracy is correct over attempted, or 0 with no attempts.
func (t TierStats) Accuracy() float64 {
	if t.TotalAttempts == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.TotalAttempts)
}

type DifficultyStats struct {
	Easy   TierStats `json:"easy"`
	Medium TierStats `json:"medium"`
	Hard   TierStats `json:"hard"`
}

// Tier returns the bucket for a level; unknown levels count as medium.
func (d *DifficultyStats) Tier(level DifficultyLevel) *TierStats {
	switch level {
	case DifficultyEasy:
		return &d.Easy
	case DifficultyHard:
		return &d.Hard
	default:
		return &d.Medium
	}
}

// SubmissionMeta is the grading result of one submission.
type SubmissionMeta struct {
	Marks              float64         `json:"marks"`
	MarksGained        float64         `json:"marks_gained"`
	MarksLost          float64         `json:"marks_lost"`
	MaxMarks           float64         `json:"max_marks"`
	CorrectQuestions   int             `json:"correct_questions"`
	IncorrectQuestions int             `json:"incorrect_questions"`
	QuestionsAttempted int             `json:"questions_attempted"`
	Accuracy           float64         `json:"accuracy"`
	Percent            float64         `json:"percent"`
	Percentile         float64         `json:"percentile"`
	Rank               int             `json:"rank"`
	Sections           []SectionMeta   `json:"sections"`
	Difficulty         DifficultyStats `json:"difficulty"`
}

// Submission is a graded attempt as stored by the persistence collaborator.
type Submission struct {
	ID             string                             `json:"id" gorm:"primaryKey;size:64"`
	UserID         string                             `json:"user_id" gorm:"size:64;uniqueIndex:idx_submission_user_instance"`
	ExamInstanceID string                             `json:"exam_instance_id" gorm:"size:64;uniqueIndex:idx_submission_user_instance"`
	ExamTemplateID string                             `json:"exam_template_id" gorm:"size:64;index"`
	Response       datatypes.JSONType[Response]       `json:"response" gorm:"type:jsonb"`
	Meta           datatypes.JSONType[SubmissionMeta] `json:"meta" gorm:"type:jsonb"`
	Flow           datatypes.JSONSlice[FlowEvent]     `json:"flow" gorm:"type:jsonb"`
	AutoGraded     bool                               `json:"auto_graded"`
	Live           bool                               `json:"live"`
	SubmittedAt    time.Time                          `json:"submitted_at"`
}

func (Submission) TableName() string {
	return "submissions"
}
