package services

import (
	"math"
	"strconv"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

const (
	DefaultHistogramBuckets   = 6
	DefaultPickingMinAttempts = 30
)

// AnalyticsAggregator folds graded submissions into an aggregate. It must
// only be called by the holder of the aggregate's drain lock.
type AnalyticsAggregator struct {
	buckets            int
	pickingMinAttempts int
}

func NewAnalyticsAggregator(buckets, pickingMinAttempts int) *AnalyticsAggregator {
	if buckets <= 0 {
		buckets = DefaultHistogramBuckets
	}
	if pickingMinAttempts <= 0 {
		pickingMinAttempts = DefaultPickingMinAttempts
	}
	return &AnalyticsAggregator{
		buckets:            buckets,
		pickingMinAttempts: pickingMinAttempts,
	}
}

func (a *AnalyticsAggregator) Buckets() int {
	return a.buckets
}

// Apply adds one submission to the aggregate in place and returns it. The
// second result is false when the submission was already applied, in which
// case the aggregate is untouched.
//
// Picking ability is scored against the average accuracy of submissions
// applied before this one, so its running sum depends on arrival order.
func (a *AnalyticsAggregator) Apply(agg *models.Aggregate, meta *models.SubmissionMeta, submissionID, userID string) (*models.Aggregate, bool) {
	if agg.HasProcessed(submissionID) {
		return agg, false
	}
	if agg.ProcessedSubmissionIDs == nil {
		agg.ProcessedSubmissionIDs = map[string]bool{}
	}
	if agg.MaxMarks == 0 {
		agg.MaxMarks = meta.MaxMarks
	}

	agg.Hist = a.ensureHist(agg.Hist)
	agg.Hist[BucketIndex(meta.Marks, agg.MaxMarks, len(agg.Hist))]++

	seen := make(map[string]bool)
	picking := a.pickingAbility(agg, meta)

	for si, section := range meta.Sections {
		agg.Sections = growSections(agg.Sections, si+1)
		sa := &agg.Sections[si]

		sa.Hist = a.ensureHist(sa.Hist)
		sa.Hist[BucketIndex(section.Marks, section.MaxMarks, len(sa.Hist))]++
		sa.Marks = append(sa.Marks, section.Marks)
		sa.SumMarks += section.Marks
		sa.Correct += section.Correct
		sa.Incorrect += section.Incorrect
		sa.SumTime += section.Time

		if len(sa.Questions) < len(section.Questions) {
			sa.Questions = append(sa.Questions, make([]models.QuestionAggregate, len(section.Questions)-len(sa.Questions))...)
		}
		for qi, q := range section.Questions {
			if !firstVisit(seen, si, qi, q.ID) || !q.Attempted() {
				continue
			}
			qa := &sa.Questions[qi]
			qa.TotalAttempts++
			if q.Correct == models.Correct {
				qa.CorrectAttempts++
			}
			qa.SumTime += q.Time
			qa.SumSqTime += q.Time * q.Time
		}
	}

	addTier(&agg.Difficulty.Easy, meta.Difficulty.Easy)
	addTier(&agg.Difficulty.Medium, meta.Difficulty.Medium)
	addTier(&agg.Difficulty.Hard, meta.Difficulty.Hard)

	agg.Marks = append(agg.Marks, models.MarkEntry{
		SubmissionID:   submissionID,
		Marks:          meta.Marks,
		UserID:         userID,
		PickingAbility: picking,
	})
	agg.SumMarks += meta.Marks
	agg.SumAccuracy += meta.Accuracy
	agg.SumSqAccuracy += meta.Accuracy * meta.Accuracy
	agg.SumPickingAbility += picking
	agg.TotalAttempts++

	agg.ProcessedSubmissionIDs[submissionID] = true
	return agg, true
}

// pickingAbility rewards skipping questions others find hard and penalizes
// skipping ones they find easy. A question is hard when its accuracy is below
// the aggregate's average accuracy. It is 0 until the aggregate holds enough
// submissions.
func (a *AnalyticsAggregator) pickingAbility(agg *models.Aggregate, meta *models.SubmissionMeta) float64 {
	if agg.TotalAttempts < a.pickingMinAttempts {
		return 0
	}
	threshold := agg.AverageAccuracy()

	seen := make(map[string]bool)
	var score float64
	for si, section := range meta.Sections {
		if si >= len(agg.Sections) {
			break
		}
		for qi, q := range section.Questions {
			if !firstVisit(seen, si, qi, q.ID) || q.Attempted() || qi >= len(agg.Sections[si].Questions) {
				continue
			}
			accuracy, ok := agg.Sections[si].Questions[qi].Accuracy()
			if !ok {
				continue
			}
			switch {
			case accuracy < threshold:
				score++
			case accuracy > threshold:
				score--
			}
		}
	}
	return score
}

// BucketIndex maps marks to clamp(floor(buckets*marks/maxMarks), 0, buckets-1).
// Without a positive maxMarks everything lands in bucket 0.
func BucketIndex(marks, maxMarks float64, buckets int) int {
	if buckets <= 0 || maxMarks <= 0 {
		return 0
	}
	idx := int(math.Floor(float64(buckets) * marks / maxMarks))
	if idx < 0 {
		return 0
	}
	if idx >= buckets {
		return buckets - 1
	}
	return idx
}

func (a *AnalyticsAggregator) ensureHist(hist []int) []int {
	if len(hist) >= a.buckets {
		return hist
	}
	return append(hist, make([]int, a.buckets-len(hist))...)
}

func growSections(sections []models.SectionAggregate, n int) []models.SectionAggregate {
	for len(sections) < n {
		sections = append(sections, models.SectionAggregate{})
	}
	return sections
}

// firstVisit reports whether a question is seen for the first time in this
// apply call. Questions are identified by id, or by position without one.
func firstVisit(seen map[string]bool, si, qi int, id string) bool {
	key := id
	if key == "" {
		key = positionKey(si, qi)
	}
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}

func positionKey(si, qi int) string {
	return "#" + strconv.Itoa(si) + "." + strconv.Itoa(qi)
}

func addTier(dst *models.TierStats, src models.TierStats) {
	dst.Correct += src.Correct
	dst.Incorrect += src.Incorrect
	dst.Time += src.Time
	dst.TotalAttempts += src.TotalAttempts
}
