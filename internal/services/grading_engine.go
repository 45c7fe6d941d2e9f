package services

import (
	"fmt"
	"slices"
	"sort"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/validator"
)

// GradingEngine turns a response into a SubmissionMeta. It holds no state
// between calls.
type GradingEngine struct {
	strategies map[models.QuestionType]gradingStrategy
	validator  *validator.Validator
}

// NewGradingEngine creates an engine. With a nil validator definitions are
// graded as given.
func NewGradingEngine(v *validator.Validator) *GradingEngine {
	return &GradingEngine{
		strategies: defaultStrategies(),
		validator:  v,
	}
}

func (e *GradingEngine) Grade(response models.Response, sections []models.SectionDefinition, scheme models.MarkingScheme, gctx models.GradeContext) (*models.SubmissionMeta, error) {
	if e.validator != nil {
		if err := e.validator.ValidateDefinitions(sections, scheme); err != nil {
			return nil, err
		}
	}

	meta := &models.SubmissionMeta{
		Sections: make([]models.SectionMeta, len(sections)),
	}

	for si, section := range sections {
		sectionMeta, err := e.gradeSection(si, section, &response, scheme)
		if err != nil {
			return nil, err
		}
		meta.Sections[si] = sectionMeta
	}

	maxMarks := applySectionGroups(meta.Sections, scheme.SectionGroups, gctx)
	summarize(meta, maxMarks)

	return meta, nil
}

func (e *GradingEngine) gradeSection(si int, section models.SectionDefinition, response *models.Response, scheme models.MarkingScheme) (models.SectionMeta, error) {
	sectionMeta := models.SectionMeta{
		Included:  true,
		Questions: make([]models.QuestionMeta, len(section.Questions)),
	}

	for qi, def := range section.Questions {
		strategy, ok := e.strategies[def.Type]
		if !ok {
			return sectionMeta, fmt.Errorf("%w: section %d question %d has unknown type %q", ErrValidationFailed, si, qi, def.Type)
		}

		var answer *models.Answer
		var spent float64
		if qr := response.Question(si, qi); qr != nil {
			answer = qr.Answer
			spent = qr.Time
		}

		outcome := strategy.Grade(resolveQuestion(def, section.Questions), answer, scheme)
		sectionMeta.Questions[qi] = models.QuestionMeta{
			ID:         def.ID,
			Correct:    outcome.Correct,
			Mark:       outcome.Mark,
			Time:       spent,
			Difficulty: def.Difficulty,
		}
	}

	sectionMeta.MaxMarks = applyQuestionGroups(sectionMeta.Questions, section)

	for _, q := range sectionMeta.Questions {
		sectionMeta.Time += q.Time
		if q.Excluded || !q.Attempted() {
			continue
		}
		if q.Mark > 0 {
			sectionMeta.MarksGained += q.Mark
		} else {
			sectionMeta.MarksLost += q.Mark
		}
		if q.Correct == models.Correct {
			sectionMeta.Correct++
		} else {
			sectionMeta.Incorrect++
		}
	}
	sectionMeta.Marks = sectionMeta.MarksGained + sectionMeta.MarksLost

	return sectionMeta, nil
}

// applyQuestionGroups marks attempted questions past the first K of each
// group as excluded and returns the section's max marks. A group contributes
// the K largest correct marks among its questions.
func applyQuestionGroups(questions []models.QuestionMeta, section models.SectionDefinition) float64 {
	grouped := make(map[int]bool)
	var maxMarks float64

	for _, group := range section.QuestionGroups {
		members := make([]int, 0, len(group.Questions))
		for _, idx := range group.Questions {
			if idx >= 0 && idx < len(questions) && !grouped[idx] {
				grouped[idx] = true
				members = append(members, idx)
			}
		}
		sort.Ints(members)

		k := group.SelectNumberOfQuestions
		counted := 0
		for _, idx := range members {
			if !questions[idx].Attempted() {
				continue
			}
			if counted < k {
				counted++
				continue
			}
			questions[idx].Excluded = true
		}

		marks := make([]float64, len(members))
		for i, idx := range members {
			marks[i] = section.Questions[idx].Marking.Correct
		}
		maxMarks += sumLargest(marks, k)
	}

	for qi, def := range section.Questions {
		if !grouped[qi] {
			maxMarks += def.Marking.Correct
		}
	}
	return maxMarks
}

// applySectionGroups keeps the K best sections of every group that applies
// to the grading phase and returns the total max marks.
func applySectionGroups(sections []models.SectionMeta, groups []models.SectionGroup, gctx models.GradeContext) float64 {
	grouped := make(map[int]bool)
	var maxMarks float64

	for _, group := range groups {
		if len(group.Phases) > 0 && !slices.Contains(group.Phases, gctx.PhaseID) {
			continue
		}

		members := make([]int, 0, len(group.Sections))
		for _, idx := range group.Sections {
			if idx >= 0 && idx < len(sections) && !grouped[idx] {
				grouped[idx] = true
				members = append(members, idx)
			}
		}

		// Best first; ties keep section order.
		sort.SliceStable(members, func(i, j int) bool {
			return sections[members[i]].Marks > sections[members[j]].Marks
		})

		k := group.SelectNumberOfSections
		maxes := make([]float64, len(members))
		for i, idx := range members {
			sections[idx].Included = i < k
			maxes[i] = sections[idx].MaxMarks
		}
		maxMarks += sumLargest(maxes, k)
	}

	for si := range sections {
		if !grouped[si] {
			maxMarks += sections[si].MaxMarks
		}
	}
	return maxMarks
}

func summarize(meta *models.SubmissionMeta, maxMarks float64) {
	meta.MaxMarks = maxMarks

	for _, section := range meta.Sections {
		if !section.Included {
			continue
		}
		meta.MarksGained += section.MarksGained
		meta.MarksLost += section.MarksLost
		meta.CorrectQuestions += section.Correct
		meta.IncorrectQuestions += section.Incorrect

		for _, q := range section.Questions {
			if q.Excluded || !q.Attempted() {
				continue
			}
			tier := meta.Difficulty.Tier(q.Difficulty)
			tier.TotalAttempts++
			tier.Time += q.Time
			if q.Correct == models.Correct {
				tier.Correct++
			} else {
				tier.Incorrect++
			}
		}
	}

	meta.Marks = meta.MarksGained + meta.MarksLost
	meta.QuestionsAttempted = meta.CorrectQuestions + meta.IncorrectQuestions
	if meta.QuestionsAttempted > 0 {
		meta.Accuracy = float64(meta.CorrectQuestions) / float64(meta.QuestionsAttempted)
	}
	if meta.MaxMarks != 0 {
		meta.Percent = 100 * meta.Marks / meta.MaxMarks
	}
}

func sumLargest(values []float64, k int) float64 {
	sorted := slices.Clone(values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	var sum float64
	for i := 0; i < k && i < len(sorted); i++ {
		sum += sorted[i]
	}
	return sum
}
