package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

type AggregateKind string

const (
	// AggregateCore is keyed by exam template id.
	AggregateCore AggregateKind = "core"
	// AggregateWrapper is keyed by exam instance id.
	AggregateWrapper AggregateKind = "wrapper"
)

type AggregateKey struct {
	Kind AggregateKind `json:"kind"`
	ID   string        `json:"id"`
}

func (k AggregateKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

type MarkEntry struct {
	SubmissionID   string  `json:"submission_id"`
	Marks          float64 `json:"marks"`
	UserID         string  `json:"user_id"`
	PickingAbility float64 `json:"picking_ability"`
}

type QuestionAggregate struct {
	CorrectAttempts int     `json:"correct_attempts"`
	TotalAttempts   int     `json:"total_attempts"`
	SumTime         float64 `json:"sum_time"`
	SumSqTime       float64 `json:"sum_sq_time"`
}

// Accuracy is the share of correct attempts, and false when never attempted.
func (q QuestionAggregate) Accuracy() (float64, bool) {
	if q.TotalAttempts == 0 {
		return 0, false
	}
	return float64(q.CorrectAttempts) / float64(q.TotalAttempts), true
}

type SectionAggregate struct {
	Hist      []int               `json:"hist"`
	Marks     []float64           `json:"marks"`
	SumMarks  float64             `json:"sum_marks"`
	Correct   int                 `json:"correct"`
	Incorrect int                 `json:"incorrect"`
	SumTime   float64             `json:"sum_time"`
	Questions []QuestionAggregate `json:"questions"`
}

// Aggregate is the running statistics record of an exam template or instance.
type Aggregate struct {
	Key                    AggregateKey       `json:"key"`
	MaxMarks               float64            `json:"max_marks"`
	Marks                  []MarkEntry        `json:"marks"`
	Hist                   []int              `json:"hist"`
	Sections               []SectionAggregate `json:"sections"`
	Difficulty             DifficultyStats    `json:"difficulty"`
	SumMarks               float64            `json:"sum_marks"`
	SumAccuracy            float64            `json:"sum_accuracy"`
	SumSqAccuracy          float64            `json:"sum_sq_accuracy"`
	SumPickingAbility      float64            `json:"sum_picking_ability"`
	TotalAttempts          int                `json:"total_attempts"`
	ProcessedSubmissionIDs map[string]bool    `json:"processed_submission_ids"`
}

// NewAggregate returns an empty aggregate with a histogram of the given size.
func NewAggregate(key AggregateKey, buckets int) *Aggregate {
	return &Aggregate{
		Key:                    key,
		Marks:                  []MarkEntry{},
		Hist:                   make([]int, buckets),
		Sections:               []SectionAggregate{},
		ProcessedSubmissionIDs: map[string]bool{},
	}
}

func (a *Aggregate) HasProcessed(submissionID string) bool {
	return a.ProcessedSubmissionIDs[submissionID]
}

// AverageAccuracy is the mean accuracy over applied submissions.
func (a *Aggregate) AverageAccuracy() float64 {
	if a.TotalAttempts == 0 {
		return 0
	}
	return a.SumAccuracy / float64(a.TotalAttempts)
}

// SortedScores returns the applied marks in ascending order.
func (a *Aggregate) SortedScores() []float64 {
	scores := make([]float64, len(a.Marks))
	for i, m := range a.Marks {
		scores[i] = m.Marks
	}
	sort.Float64s(scores)
	return scores
}

// AggregateRecord is the stored form of an aggregate. The whole aggregate,
// processed ids included, lives in one row so a put is a single write.
type AggregateRecord struct {
	Kind      AggregateKind                 `gorm:"primaryKey;size:16"`
	EntityID  string                        `gorm:"primaryKey;size:64"`
	Payload   datatypes.JSONType[Aggregate] `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (AggregateRecord) TableName() string {
	return "analytics_aggregates"
}
