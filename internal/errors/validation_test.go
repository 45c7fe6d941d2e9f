package errors

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStructValidator registers the content tags the way internal/validator
// does, without importing it.
func newStructValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionSingle, models.QuestionMultiple, models.QuestionRange,
			models.QuestionLinkedSingle, models.QuestionLinkedMultiple:
			return true
		}
		return false
	}))
	require.NoError(t, v.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		switch models.DifficultyLevel(fl.Field().String()) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			return true
		}
		return false
	}))
	return v
}

func byField(errs ValidationErrors) map[string]ValidationError {
	out := make(map[string]ValidationError, len(errs))
	for _, e := range errs {
		out[e.Field] = e
	}
	return out
}

func TestToValidationErrors(t *testing.T) {
	v := newStructValidator(t)

	t.Run("question definition", func(t *testing.T) {
		errs := ToValidationErrors(v.Struct(models.QuestionDefinition{
			Type:       "essay",
			Difficulty: "extreme",
		}))
		require.Len(t, errs, 3)

		fields := byField(errs)
		assert.Equal(t, "is required", fields["ID"].Message)
		assert.Equal(t, "required", fields["ID"].Rule)
		assert.Equal(t, "must be a valid question type (single, multiple, range, linked_single, linked_multiple)", fields["Type"].Message)
		assert.Equal(t, "question_type", fields["Type"].Rule)
		assert.Equal(t, "must be easy, medium, or hard", fields["Difficulty"].Message)
		assert.Equal(t, "difficulty_level", fields["Difficulty"].Rule)
	})

	t.Run("range question without bounds", func(t *testing.T) {
		errs := ToValidationErrors(v.Struct(models.QuestionDefinition{ID: "q1", Type: models.QuestionRange}))
		require.Len(t, errs, 1)
		assert.Equal(t, "Range", errs[0].Field)
		assert.Equal(t, "is required when Type range", errs[0].Message)
		assert.Equal(t, "required_if", errs[0].Rule)
	})

	t.Run("numeric range", func(t *testing.T) {
		errs := ToValidationErrors(v.Struct(models.NumericRange{Start: 5, End: 1, Tolerance: -1}))
		require.Len(t, errs, 2)

		fields := byField(errs)
		assert.Equal(t, "must be greater than or equal to Start", fields["End"].Message)
		assert.Equal(t, 1.0, fields["End"].Value)
		assert.Equal(t, "must be at least 0", fields["Tolerance"].Message)
		assert.Equal(t, -1.0, fields["Tolerance"].Value)
	})

	t.Run("question group selection", func(t *testing.T) {
		errs := ToValidationErrors(v.Struct(models.QuestionGroup{
			Questions:               []int{0, 1},
			SelectionType:           "ALL",
			SelectNumberOfQuestions: 1,
		}))
		require.Len(t, errs, 1)
		assert.Equal(t, "must equal PFS", errs[0].Message)
		assert.Equal(t, "eq", errs[0].Rule)
	})

	t.Run("marking scheme", func(t *testing.T) {
		errs := ToValidationErrors(v.Struct(models.MarkingScheme{MultiCorrect: "some"}))
		require.Len(t, errs, 1)
		assert.Equal(t, "must be one of: no_partial partial", errs[0].Message)
	})

	t.Run("valid definition", func(t *testing.T) {
		err := v.Struct(models.QuestionDefinition{ID: "q1", Type: models.QuestionSingle, Difficulty: models.DifficultyEasy})
		require.NoError(t, err)
		assert.Empty(t, ToValidationErrors(err))
	})

	t.Run("other errors are not converted", func(t *testing.T) {
		assert.Empty(t, ToValidationErrors(errors.New("boom")))
	})
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	assert.Equal(t, "validation failed: ID is required", ValidationErrors{*NewValidationError("ID", "is required", "")}.Error())
	assert.Equal(t, "validation failed: 2 field errors", ValidationErrors{
		*NewValidationError("ID", "is required", ""),
		*NewValidationError("Type", "is required", ""),
	}.Error())

	single := NewValidationError("End", "must be greater than or equal to Start", 1.0)
	assert.Equal(t, "validation error on field 'End': must be greater than or equal to Start", single.Error())
}
