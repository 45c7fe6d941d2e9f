package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator  *validator.Validate
	contentValidator *ContentValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:  structValidator,
		contentValidator: NewContentValidator(),
	}
}

type flowPayload struct {
	Events []models.FlowEvent `json:"events" validate:"dive"`
}

type gradingPayload struct {
	Sections []models.SectionDefinition `json:"sections" validate:"required,min=1,dive"`
	Scheme   models.MarkingScheme       `json:"scheme"`
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateFlow checks client-reported flow events before reconciliation.
func (v *Validator) ValidateFlow(events []models.FlowEvent) error {
	return v.ValidateStruct(&flowPayload{Events: events})
}

// ValidateDefinitions performs complete validation (struct + content rules)
// of the section definitions and marking scheme used for grading.
func (v *Validator) ValidateDefinitions(sections []models.SectionDefinition, scheme models.MarkingScheme) error {
	if err := v.ValidateStruct(&gradingPayload{Sections: sections, Scheme: scheme}); err != nil {
		return err
	}

	if errors := v.contentValidator.Validate(sections, scheme); len(errors) > 0 {
		return errors
	}

	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	// Question type validation
	validate.RegisterValidation("question_type", validateQuestionType)

	// Difficulty level validation
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionSingle,
		models.QuestionMultiple,
		models.QuestionRange,
		models.QuestionLinkedSingle,
		models.QuestionLinkedMultiple,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	validLevels := []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}
