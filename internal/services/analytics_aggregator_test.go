package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = models.AggregateKey{Kind: models.AggregateCore, ID: "tmpl-1"}

// oneSection builds a meta with a single section carrying all questions.
func oneSection(marks, maxMarks float64, questions ...models.QuestionMeta) *models.SubmissionMeta {
	section := models.SectionMeta{Marks: marks, MaxMarks: maxMarks, Included: true, Questions: questions}
	for _, q := range questions {
		section.Time += q.Time
		switch q.Correct {
		case models.Correct:
			section.Correct++
		case models.Incorrect:
			section.Incorrect++
		}
	}
	meta := &models.SubmissionMeta{
		Marks:              marks,
		MaxMarks:           maxMarks,
		CorrectQuestions:   section.Correct,
		IncorrectQuestions: section.Incorrect,
		Sections:           []models.SectionMeta{section},
	}
	if attempted := section.Correct + section.Incorrect; attempted > 0 {
		meta.Accuracy = float64(section.Correct) / float64(attempted)
	}
	return meta
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		marks, max float64
		want       int
	}{
		{50, 100, 3},
		{70, 100, 4},
		{100, 100, 5},
		{120, 100, 5},
		{0, 100, 0},
		{-5, 100, 0},
		{40, 0, 0},
		{40, -10, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v of %v", tt.marks, tt.max), func(t *testing.T) {
			assert.Equal(t, tt.want, BucketIndex(tt.marks, tt.max, 6))
		})
	}
}

func TestAnalyticsAggregator_Apply(t *testing.T) {
	t.Run("folds a submission", func(t *testing.T) {
		a := NewAnalyticsAggregator(0, 0)
		agg := models.NewAggregate(testKey, a.Buckets())
		meta := oneSection(50, 100,
			models.QuestionMeta{ID: "q1", Correct: models.Correct, Time: 30},
			models.QuestionMeta{ID: "q2", Correct: models.Incorrect, Time: 20},
			models.QuestionMeta{ID: "q3", Correct: models.Unattempted, Time: 5},
		)
		meta.Difficulty.Easy = models.TierStats{Correct: 1, TotalAttempts: 1, Time: 30}

		_, applied := a.Apply(agg, meta, "s1", "u1")
		require.True(t, applied)

		assert.Equal(t, 100.0, agg.MaxMarks)
		assert.Equal(t, []int{0, 0, 0, 1, 0, 0}, agg.Hist)
		assert.Equal(t, 1, agg.TotalAttempts)
		assert.Equal(t, []models.MarkEntry{{SubmissionID: "s1", Marks: 50, UserID: "u1"}}, agg.Marks)
		assert.Equal(t, 0.5, agg.SumAccuracy)
		assert.Equal(t, 0.25, agg.SumSqAccuracy)
		assert.True(t, agg.HasProcessed("s1"))
		assert.Equal(t, 1, agg.Difficulty.Easy.Correct)

		require.Len(t, agg.Sections, 1)
		section := agg.Sections[0]
		assert.Equal(t, []float64{50}, section.Marks)
		assert.Equal(t, 1, section.Correct)
		assert.Equal(t, 1, section.Incorrect)
		assert.Equal(t, 55.0, section.SumTime)
		require.Len(t, section.Questions, 3)
		assert.Equal(t, models.QuestionAggregate{CorrectAttempts: 1, TotalAttempts: 1, SumTime: 30, SumSqTime: 900}, section.Questions[0])
		assert.Equal(t, models.QuestionAggregate{TotalAttempts: 1, SumTime: 20, SumSqTime: 400}, section.Questions[1])
		assert.Equal(t, models.QuestionAggregate{}, section.Questions[2])
	})

	t.Run("is idempotent per submission", func(t *testing.T) {
		a := NewAnalyticsAggregator(6, 30)
		agg := models.NewAggregate(testKey, a.Buckets())
		meta := oneSection(70, 100, models.QuestionMeta{ID: "q1", Correct: models.Correct})

		_, applied := a.Apply(agg, meta, "s1", "u1")
		require.True(t, applied)
		hist := append([]int(nil), agg.Hist...)
		sumMarks := agg.SumMarks

		_, applied = a.Apply(agg, meta, "s1", "u1")
		assert.False(t, applied)
		assert.Equal(t, 1, agg.TotalAttempts)
		assert.Equal(t, hist, agg.Hist)
		assert.Equal(t, sumMarks, agg.SumMarks)
		assert.Len(t, agg.Marks, 1)
		assert.Equal(t, 1, agg.Sections[0].Questions[0].TotalAttempts)
	})

	t.Run("counts a repeated question once", func(t *testing.T) {
		a := NewAnalyticsAggregator(6, 30)
		agg := models.NewAggregate(testKey, a.Buckets())
		meta := oneSection(8, 8,
			models.QuestionMeta{ID: "dup", Correct: models.Correct, Time: 10},
			models.QuestionMeta{ID: "dup", Correct: models.Correct, Time: 10},
			models.QuestionMeta{Correct: models.Correct, Time: 10},
		)

		a.Apply(agg, meta, "s1", "u1")

		questions := agg.Sections[0].Questions
		assert.Equal(t, 1, questions[0].TotalAttempts)
		assert.Equal(t, 0, questions[1].TotalAttempts)
		assert.Equal(t, 1, questions[2].TotalAttempts)
	})

	t.Run("uses the stored max marks", func(t *testing.T) {
		a := NewAnalyticsAggregator(6, 30)
		agg := models.NewAggregate(testKey, a.Buckets())
		agg.MaxMarks = 200

		a.Apply(agg, oneSection(100, 100), "s1", "u1")
		assert.Equal(t, 200.0, agg.MaxMarks)
		assert.Equal(t, 1, agg.Hist[3])
	})
}

func TestAnalyticsAggregator_Conservation(t *testing.T) {
	a := NewAnalyticsAggregator(6, 30)
	agg := models.NewAggregate(testKey, a.Buckets())
	rng := rand.New(rand.NewSource(11))

	var sumMarks float64
	for i := 0; i < 150; i++ {
		marks := float64(rng.Intn(160) - 40)
		sumMarks += marks
		meta := oneSection(marks, 120,
			models.QuestionMeta{ID: "q1", Correct: rng.Intn(3) - 1},
			models.QuestionMeta{ID: "q2", Correct: rng.Intn(3) - 1},
		)
		_, applied := a.Apply(agg, meta, fmt.Sprintf("s%d", i), "u")
		require.True(t, applied)
		// Replays never change the totals.
		_, applied = a.Apply(agg, meta, fmt.Sprintf("s%d", i/2), "u")
		require.False(t, applied)
	}

	total := 0
	for _, n := range agg.Hist {
		total += n
	}
	sectionTotal := 0
	for _, n := range agg.Sections[0].Hist {
		sectionTotal += n
	}
	assert.Equal(t, 150, total)
	assert.Equal(t, 150, sectionTotal)
	assert.Equal(t, 150, agg.TotalAttempts)
	assert.Len(t, agg.Marks, 150)
	assert.Len(t, agg.ProcessedSubmissionIDs, 150)
	assert.Equal(t, sumMarks, agg.SumMarks)
}

func TestAnalyticsAggregator_PickingAbility(t *testing.T) {
	// An aggregate with 30 prior submissions averaging 0.5 accuracy whose
	// questions are hard (0.2), easy (0.9), average (0.5) and never tried.
	seeded := func(attempts int) *models.Aggregate {
		agg := models.NewAggregate(testKey, 6)
		agg.TotalAttempts = attempts
		agg.SumAccuracy = 0.5 * float64(attempts)
		agg.Sections = []models.SectionAggregate{{
			Questions: []models.QuestionAggregate{
				{CorrectAttempts: 2, TotalAttempts: 10},
				{CorrectAttempts: 9, TotalAttempts: 10},
				{CorrectAttempts: 5, TotalAttempts: 10},
				{},
			},
		}}
		return agg
	}
	skipped := models.QuestionMeta{Correct: models.Unattempted}
	answered := models.QuestionMeta{Correct: models.Correct}
	with := func(q0, q1, q2, q3 models.QuestionMeta) *models.SubmissionMeta {
		q0.ID, q1.ID, q2.ID, q3.ID = "hard", "easy", "average", "untried"
		return oneSection(4, 16, q0, q1, q2, q3)
	}

	tests := []struct {
		name     string
		attempts int
		meta     *models.SubmissionMeta
		want     float64
	}{
		{"skipping a hard question is rewarded", 30, with(skipped, answered, answered, answered), 1},
		{"skipping an easy question is penalised", 30, with(answered, skipped, answered, answered), -1},
		{"average and untried questions are neutral", 30, with(answered, answered, skipped, skipped), 0},
		{"skipping everything nets out", 30, with(skipped, skipped, skipped, skipped), 0},
		{"too few submissions", 29, with(skipped, answered, answered, answered), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyticsAggregator(6, 30)
			agg := seeded(tt.attempts)

			_, applied := a.Apply(agg, tt.meta, "s-new", "u1")
			require.True(t, applied)
			require.Len(t, agg.Marks, 1)
			assert.Equal(t, tt.want, agg.Marks[0].PickingAbility)
			assert.Equal(t, tt.want, agg.SumPickingAbility)
		})
	}
}
