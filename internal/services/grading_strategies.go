package services

import (
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// questionOutcome is the three-state correctness and the signed mark of one
// graded question.
type questionOutcome struct {
	Correct int
	Mark    float64
}

var unattempted = questionOutcome{Correct: models.Unattempted}

// gradedQuestion is a question definition with linked fields resolved.
type gradedQuestion struct {
	Definition     models.QuestionDefinition
	Options        []string
	CorrectOptions []string
}

// gradingStrategy grades a single question type.
type gradingStrategy interface {
	Grade(q gradedQuestion, answer *models.Answer, scheme models.MarkingScheme) questionOutcome
}

func defaultStrategies() map[models.QuestionType]gradingStrategy {
	return map[models.QuestionType]gradingStrategy{
		models.QuestionSingle:         singleChoiceStrategy{},
		models.QuestionMultiple:       multiChoiceStrategy{},
		models.QuestionRange:          rangeStrategy{},
		models.QuestionLinkedSingle:   linkedStrategy{base: singleChoiceStrategy{}},
		models.QuestionLinkedMultiple: linkedStrategy{base: multiChoiceStrategy{}},
	}
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q gradedQuestion, answer *models.Answer, _ models.MarkingScheme) questionOutcome {
	if answer == nil || len(answer.Options) == 0 {
		return unattempted
	}
	marking := q.Definition.Marking
	if len(answer.Options) == 1 && len(q.CorrectOptions) > 0 && answer.Options[0] == q.CorrectOptions[0] {
		return questionOutcome{Correct: models.Correct, Mark: marking.Correct}
	}
	return questionOutcome{Correct: models.Incorrect, Mark: marking.Incorrect}
}

type multiChoiceStrategy struct{}

func (multiChoiceStrategy) Grade(q gradedQuestion, answer *models.Answer, scheme models.MarkingScheme) questionOutcome {
	if answer == nil || len(answer.Options) == 0 {
		return unattempted
	}
	marking := q.Definition.Marking

	correct := toSet(q.CorrectOptions)
	chosen := toSet(answer.Options)
	for option := range chosen {
		if _, ok := correct[option]; !ok {
			return questionOutcome{Correct: models.Incorrect, Mark: marking.Incorrect}
		}
	}

	if len(chosen) == len(correct) {
		return questionOutcome{Correct: models.Correct, Mark: marking.Correct}
	}

	// Some but not all correct options, none wrong.
	if scheme.MultiCorrect == models.MultiPartial {
		return questionOutcome{Correct: models.Incorrect, Mark: scheme.PartialMarks[len(chosen)]}
	}
	return questionOutcome{Correct: models.Incorrect, Mark: marking.Incorrect}
}

type rangeStrategy struct{}

func (rangeStrategy) Grade(q gradedQuestion, answer *models.Answer, _ models.MarkingScheme) questionOutcome {
	if answer == nil || answer.Value == nil {
		return unattempted
	}
	marking := q.Definition.Marking
	r := q.Definition.Range
	if r == nil {
		return questionOutcome{Correct: models.Incorrect, Mark: marking.Incorrect}
	}

	value := *answer.Value
	if value >= r.Start-r.Tolerance && value <= r.End+r.Tolerance {
		return questionOutcome{Correct: models.Correct, Mark: marking.Correct}
	}
	return questionOutcome{Correct: models.Incorrect, Mark: marking.Incorrect}
}

// linkedStrategy grades against the parent's option set. The answer key
// falls back to the parent's when the linked question defines none.
type linkedStrategy struct {
	base gradingStrategy
}

func (s linkedStrategy) Grade(q gradedQuestion, answer *models.Answer, scheme models.MarkingScheme) questionOutcome {
	if answer != nil && len(q.Options) > 0 {
		allowed := toSet(q.Options)
		for _, option := range answer.Options {
			if _, ok := allowed[option]; !ok {
				return questionOutcome{Correct: models.Incorrect, Mark: q.Definition.Marking.Incorrect}
			}
		}
	}
	return s.base.Grade(q, answer, scheme)
}

func resolveQuestion(def models.QuestionDefinition, siblings []models.QuestionDefinition) gradedQuestion {
	q := gradedQuestion{
		Definition:     def,
		Options:        def.Options,
		CorrectOptions: def.CorrectOptions,
	}
	if !def.Type.IsLinked() || def.Parent == nil || *def.Parent < 0 || *def.Parent >= len(siblings) {
		return q
	}

	parent := siblings[*def.Parent]
	q.Options = parent.Options
	if len(q.CorrectOptions) == 0 {
		q.CorrectOptions = parent.CorrectOptions
	}
	return q
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
