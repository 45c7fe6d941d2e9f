package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionSingle         QuestionType = "single"
	QuestionMultiple       QuestionType = "multiple"
	QuestionRange          QuestionType = "range"
	QuestionLinkedSingle   QuestionType = "linked_single"
	QuestionLinkedMultiple QuestionType = "linked_multiple"
)

// IsLinked reports whether the question reuses its parent's option set.
func (t QuestionType) IsLinked() bool {
	return t == QuestionLinkedSingle || t == QuestionLinkedMultiple
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type MultiCorrectScheme string

const (
	MultiNoPartial MultiCorrectScheme = "no_partial"
	MultiPartial   MultiCorrectScheme = "partial"
)

// QuestionSelection is how a question group picks the questions that count.
type QuestionSelection string

// SelectFromStart counts the first K attempted questions by position.
const SelectFromStart QuestionSelection = "PFS"

type NumericRange struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end" validate:"gtefield=Start"`
	Tolerance float64 `json:"tolerance" validate:"min=0"`
}

type QuestionMarking struct {
	Correct   float64 `json:"correct" validate:"min=0"`
	Incorrect float64 `json:"incorrect" validate:"max=0"`
}

type QuestionDefinition struct {
	ID             string          `json:"id" validate:"required"`
	Type           QuestionType    `json:"type" validate:"required,question_type"`
	Options        []string        `json:"options,omitempty"`
	CorrectOptions []string        `json:"correct_options,omitempty"`
	Range          *NumericRange   `json:"range,omitempty" validate:"required_if=Type range"`
	Parent         *int            `json:"parent,omitempty" validate:"omitempty,min=0"`
	Difficulty     DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Marking        QuestionMarking `json:"marking"`
}

type QuestionGroup struct {
	Questions               []int             `json:"questions" validate:"required,min=1,dive,min=0"`
	SelectionType           QuestionSelection `json:"selection_type" validate:"required,eq=PFS"`
	SelectNumberOfQuestions int               `json:"select_number_of_questions" validate:"min=1"`
}

type SectionDefinition struct {
	Name           string               `json:"name"`
	Questions      []QuestionDefinition `json:"questions" validate:"dive"`
	QuestionGroups []QuestionGroup      `json:"question_groups,omitempty" validate:"dive"`
}

// SectionGroup keeps the K best-scoring sections among Sections. A group with
// Phases applies only to submissions graded in one of those phases.
type SectionGroup struct {
	Sections               []int    `json:"sections" validate:"required,min=1,dive,min=0"`
	SelectNumberOfSections int      `json:"select_number_of_sections" validate:"min=1"`
	Phases                 []string `json:"phases,omitempty"`
}

type MarkingScheme struct {
	MultiCorrect MultiCorrectScheme `json:"multi_correct" validate:"omitempty,oneof=no_partial partial"`
	// PartialMarks maps the number of correct options chosen (with no wrong
	// option) to the awarded mark.
	PartialMarks  map[int]float64 `json:"partial_marks,omitempty"`
	SectionGroups []SectionGroup  `json:"section_groups,omitempty" validate:"dive"`
}

// GradeContext carries the phase/subscription the submission is graded under.
type GradeContext struct {
	PhaseID string `json:"phase_id,omitempty"`
}

// GradingMode tells whether scores are produced automatically.
type GradingMode string

const (
	GradingAuto   GradingMode = "auto"
	GradingManual GradingMode = "manual"
)

// ExamInstance is one scheduled offering of an exam template.
type ExamInstance struct {
	ID              string                            `json:"id" gorm:"primaryKey;size:64"`
	ExamTemplateID  string                            `json:"exam_template_id" gorm:"size:64;index"`
	DurationSeconds int                               `json:"duration_seconds"`
	GradingMode     GradingMode                       `json:"grading_mode" gorm:"size:16;default:auto"`
	Live            bool                              `json:"live"`
	MarkingScheme   datatypes.JSONType[MarkingScheme] `json:"marking_scheme" gorm:"type:jsonb"`
	CreatedAt       time.Time                         `json:"created_at"`
}

func (ExamInstance) TableName() string {
	return "exam_instances"
}

// ExamTemplate holds the immutable section definitions of an exam.
type ExamTemplate struct {
	ID        string                                 `json:"id" gorm:"primaryKey;size:64"`
	Sections  datatypes.JSONSlice[SectionDefinition] `json:"sections" gorm:"type:jsonb"`
	CreatedAt time.Time                              `json:"created_at"`
}

func (ExamTemplate) TableName() string {
	return "exam_templates"
}
