package validator

import (
	"fmt"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// ContentValidator checks cross-field rules of exam content that struct tags
// cannot express.
type ContentValidator struct{}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

func (v *ContentValidator) Validate(sections []models.SectionDefinition, scheme models.MarkingScheme) ValidationErrors {
	var errs ValidationErrors

	for si, section := range sections {
		for qi, question := range section.Questions {
			errs = append(errs, v.validateQuestion(si, qi, question, section.Questions)...)
		}
		for gi, group := range section.QuestionGroups {
			field := fmt.Sprintf("sections[%d].question_groups[%d]", si, gi)
			for _, idx := range group.Questions {
				if idx >= len(section.Questions) {
					errs = append(errs, *NewValidationError(field, "references a question outside the section", idx))
				}
			}
			if group.SelectNumberOfQuestions > len(group.Questions) {
				errs = append(errs, *NewValidationError(field, "selects more questions than the group holds", group.SelectNumberOfQuestions))
			}
		}
	}

	for gi, group := range scheme.SectionGroups {
		field := fmt.Sprintf("scheme.section_groups[%d]", gi)
		for _, idx := range group.Sections {
			if idx >= len(sections) {
				errs = append(errs, *NewValidationError(field, "references a section that does not exist", idx))
			}
		}
		if group.SelectNumberOfSections > len(group.Sections) {
			errs = append(errs, *NewValidationError(field, "selects more sections than the group holds", group.SelectNumberOfSections))
		}
	}

	return errs
}

func (v *ContentValidator) validateQuestion(si, qi int, q models.QuestionDefinition, siblings []models.QuestionDefinition) ValidationErrors {
	var errs ValidationErrors
	field := fmt.Sprintf("sections[%d].questions[%d]", si, qi)

	if q.Type.IsLinked() {
		if q.Parent == nil || *q.Parent >= len(siblings) || *q.Parent == qi {
			errs = append(errs, *NewValidationError(field+".parent", "linked question needs a valid parent", q.Parent))
			return errs
		}
		if siblings[*q.Parent].Type.IsLinked() {
			errs = append(errs, *NewValidationError(field+".parent", "parent of a linked question cannot be linked", *q.Parent))
		}
		return errs
	}

	if q.Type == models.QuestionRange {
		return errs
	}

	if len(q.CorrectOptions) == 0 {
		errs = append(errs, *NewValidationError(field+".correct_options", "is required", nil))
	}
	if q.Type == models.QuestionSingle && len(q.CorrectOptions) > 1 {
		errs = append(errs, *NewValidationError(field+".correct_options", "single choice question has more than one correct option", q.CorrectOptions))
	}
	if len(q.Options) > 0 {
		known := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			known[o] = struct{}{}
		}
		for _, o := range q.CorrectOptions {
			if _, ok := known[o]; !ok {
				errs = append(errs, *NewValidationError(field+".correct_options", "is not one of the options", o))
			}
		}
	}
	return errs
}
