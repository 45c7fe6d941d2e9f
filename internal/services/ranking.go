package services

import (
	"sort"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

type RankResult struct {
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
}

// RankingCalculator places a score within the score list of an aggregate.
type RankingCalculator struct{}

func NewRankingCalculator() *RankingCalculator {
	return &RankingCalculator{}
}

// Rank returns 1 plus the number of scores strictly greater than score, so
// tied scores share the best rank. sortedScores must be ascending.
func (RankingCalculator) Rank(score float64, sortedScores []float64) RankResult {
	n := len(sortedScores)
	firstGreater := sort.Search(n, func(i int) bool { return sortedScores[i] > score })
	rank := 1 + n - firstGreater

	result := RankResult{Rank: rank}
	// A score below the whole list ranks n+1; its percentile floors at 0.
	if n > 0 && rank <= n {
		result.Percentile = 100 * float64(n-rank) / float64(n)
	}
	return result
}

func (c RankingCalculator) RankAgainst(score float64, aggregate *models.Aggregate) RankResult {
	if aggregate == nil {
		return c.Rank(score, nil)
	}
	return c.Rank(score, aggregate.SortedScores())
}

// RankWith ranks a score that is not yet in the aggregate, counting it among
// the scored submissions. Once the submission is drained, RankAgainst gives
// the same result as long as no other submission arrived.
func (c RankingCalculator) RankWith(score float64, aggregate *models.Aggregate) RankResult {
	var scores []float64
	if aggregate != nil {
		scores = aggregate.SortedScores()
	}
	i := sort.SearchFloat64s(scores, score)
	scores = append(scores, 0)
	copy(scores[i+1:], scores[i:])
	scores[i] = score
	return c.Rank(score, scores)
}

// Refresh recomputes rank and percentile of an auto-graded live submission
// and reports whether meta changed. Other submissions keep the rank they
// were graded with.
func (c RankingCalculator) Refresh(meta *models.SubmissionMeta, aggregate *models.Aggregate, submission *models.Submission) bool {
	if submission == nil || !submission.AutoGraded || !submission.Live {
		return false
	}

	result := c.RankAgainst(meta.Marks, aggregate)
	if meta.Rank == result.Rank && meta.Percentile == result.Percentile {
		return false
	}
	meta.Rank = result.Rank
	meta.Percentile = result.Percentile
	return true
}
