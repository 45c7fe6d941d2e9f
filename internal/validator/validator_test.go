package validator

import (
	"errors"
	"testing"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func validSingle(id string) models.QuestionDefinition {
	return models.QuestionDefinition{
		ID:             id,
		Type:           models.QuestionSingle,
		Options:        []string{"a", "b"},
		CorrectOptions: []string{"a"},
		Marking:        models.QuestionMarking{Correct: 4, Incorrect: -1},
	}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	return fields
}

func TestValidator_ValidateFlow(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateFlow(nil))
	assert.NoError(t, v.ValidateFlow([]models.FlowEvent{{ID: 0, SectionIndex: 1, QuestionIndex: 2, Time: -40}}))

	err := v.ValidateFlow([]models.FlowEvent{{ID: 1, QuestionIndex: -1}})
	assert.Contains(t, fieldsOf(t, err), "question_index")
}

func TestValidator_ValidateDefinitions(t *testing.T) {
	v := New()

	t.Run("valid content", func(t *testing.T) {
		sections := []models.SectionDefinition{{
			Questions: []models.QuestionDefinition{
				validSingle("q1"),
				{ID: "q2", Type: models.QuestionLinkedSingle, Parent: intPtr(0)},
				{ID: "q3", Type: models.QuestionRange, Range: &models.NumericRange{Start: 1, End: 2}, Difficulty: models.DifficultyHard},
			},
			QuestionGroups: []models.QuestionGroup{{Questions: []int{0, 2}, SelectionType: models.SelectFromStart, SelectNumberOfQuestions: 1}},
		}}
		scheme := models.MarkingScheme{MultiCorrect: models.MultiPartial}
		assert.NoError(t, v.ValidateDefinitions(sections, scheme))
	})

	tests := []struct {
		name      string
		sections  []models.SectionDefinition
		scheme    models.MarkingScheme
		wantField string
	}{
		{
			name:      "no sections",
			wantField: "sections",
		},
		{
			name:      "unknown question type",
			sections:  []models.SectionDefinition{{Questions: []models.QuestionDefinition{{ID: "q", Type: "essay"}}}},
			wantField: "type",
		},
		{
			name: "unknown difficulty",
			sections: []models.SectionDefinition{{Questions: []models.QuestionDefinition{func() models.QuestionDefinition {
				q := validSingle("q")
				q.Difficulty = "brutal"
				return q
			}()}}},
			wantField: "difficulty",
		},
		{
			name:      "range question without range",
			sections:  []models.SectionDefinition{{Questions: []models.QuestionDefinition{{ID: "r", Type: models.QuestionRange}}}},
			wantField: "range",
		},
		{
			name: "positive penalty",
			sections: []models.SectionDefinition{{Questions: []models.QuestionDefinition{func() models.QuestionDefinition {
				q := validSingle("q")
				q.Marking.Incorrect = 1
				return q
			}()}}},
			wantField: "incorrect",
		},
		{
			name:      "linked question without parent",
			sections:  []models.SectionDefinition{{Questions: []models.QuestionDefinition{validSingle("q1"), {ID: "q2", Type: models.QuestionLinkedMultiple}}}},
			wantField: "sections[0].questions[1].parent",
		},
		{
			name: "linked to a linked question",
			sections: []models.SectionDefinition{{Questions: []models.QuestionDefinition{
				validSingle("q1"),
				{ID: "q2", Type: models.QuestionLinkedSingle, Parent: intPtr(0)},
				{ID: "q3", Type: models.QuestionLinkedSingle, Parent: intPtr(1)},
			}}},
			wantField: "sections[0].questions[2].parent",
		},
		{
			name: "single choice with two answers",
			sections: []models.SectionDefinition{{Questions: []models.QuestionDefinition{func() models.QuestionDefinition {
				q := validSingle("q")
				q.CorrectOptions = []string{"a", "b"}
				return q
			}()}}},
			wantField: "sections[0].questions[0].correct_options",
		},
		{
			name: "answer outside the options",
			sections: []models.SectionDefinition{{Questions: []models.QuestionDefinition{func() models.QuestionDefinition {
				q := validSingle("q")
				q.CorrectOptions = []string{"z"}
				return q
			}()}}},
			wantField: "sections[0].questions[0].correct_options",
		},
		{
			name: "question group selects too many",
			sections: []models.SectionDefinition{{
				Questions:      []models.QuestionDefinition{validSingle("q1"), validSingle("q2")},
				QuestionGroups: []models.QuestionGroup{{Questions: []int{0, 1}, SelectionType: models.SelectFromStart, SelectNumberOfQuestions: 3}},
			}},
			wantField: "sections[0].question_groups[0]",
		},
		{
			name: "question group out of range",
			sections: []models.SectionDefinition{{
				Questions:      []models.QuestionDefinition{validSingle("q1")},
				QuestionGroups: []models.QuestionGroup{{Questions: []int{0, 4}, SelectionType: models.SelectFromStart, SelectNumberOfQuestions: 1}},
			}},
			wantField: "sections[0].question_groups[0]",
		},
		{
			name:      "section group references a missing section",
			sections:  []models.SectionDefinition{{Questions: []models.QuestionDefinition{validSingle("q1")}}},
			scheme:    models.MarkingScheme{SectionGroups: []models.SectionGroup{{Sections: []int{0, 3}, SelectNumberOfSections: 1}}},
			wantField: "scheme.section_groups[0]",
		},
		{
			name:      "unknown multi-correct scheme",
			sections:  []models.SectionDefinition{{Questions: []models.QuestionDefinition{validSingle("q1")}}},
			scheme:    models.MarkingScheme{MultiCorrect: "generous"},
			wantField: "multi_correct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDefinitions(tt.sections, tt.scheme)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.wantField)
		})
	}
}
