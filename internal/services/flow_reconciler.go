package services

import (
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// DefaultOvertimeFactor is the grace multiplier applied to an exam's duration.
const DefaultOvertimeFactor = 1.10

// ReconcileInput is one client sync batch together with the persisted state
// it extends. Times are milliseconds; ServerNow is milliseconds since epoch.
type ReconcileInput struct {
	Incoming        []models.FlowEvent
	Persisted       []models.FlowEvent
	LastKnownTime   float64
	StartTime       time.Time
	DurationSeconds int
	ServerNow       float64
}

type ReconcileResult struct {
	// Flow is the full flow to persist: Persisted plus the reconciled batch.
	Flow []models.FlowEvent
	// Appended holds the reconciled events of this batch. When the first one
	// was merged into the last persisted event, it is the merged event.
	Appended  []models.FlowEvent
	Merged    bool
	ServerNow float64
	Elapsed   float64
	// Unspent is the part of Elapsed not assigned to any event.
	Unspent float64
}

// FlowReconciler repairs client-reported dwell times so that every batch
// accounts for exactly the wall-clock time the server observed.
type FlowReconciler struct {
	overtimeFactor float64
}

func NewFlowReconciler(overtimeFactor float64) *FlowReconciler {
	if overtimeFactor <= 0 {
		overtimeFactor = DefaultOvertimeFactor
	}
	return &FlowReconciler{overtimeFactor: overtimeFactor}
}

// Deadline is the last accepted server time for an exam, in epoch milliseconds.
func (r *FlowReconciler) Deadline(start time.Time, durationSeconds int) float64 {
	return float64(start.UnixMilli()) + r.overtimeFactor*float64(durationSeconds)*1000
}

func (r *FlowReconciler) Reconcile(in ReconcileInput) (*ReconcileResult, error) {
	if in.ServerNow > r.Deadline(in.StartTime, in.DurationSeconds) {
		return nil, ErrAssessmentTimeExceeded
	}

	elapsed := in.ServerNow - in.LastKnownTime
	if elapsed < 0 {
		elapsed = 0
	}

	flow := make([]models.FlowEvent, len(in.Persisted), len(in.Persisted)+len(in.Incoming))
	copy(flow, in.Persisted)

	fresh := dedupeEvents(in.Incoming, in.Persisted)
	if len(fresh) == 0 {
		return &ReconcileResult{
			Flow:      flow,
			ServerNow: in.ServerNow,
			Elapsed:   elapsed,
			Unspent:   elapsed,
		}, nil
	}

	replaceOutliers(fresh, elapsed)
	spent := rescaleTimes(fresh, elapsed)

	running := in.LastKnownTime
	for i := range fresh {
		running += fresh[i].Time
		fresh[i].EndTime = running
	}

	result := &ReconcileResult{
		ServerNow: in.ServerNow,
		Elapsed:   elapsed,
		Unspent:   elapsed - spent,
	}

	if n := len(flow); n > 0 && flow[n-1].SameQuestion(fresh[0]) {
		flow[n-1] = mergeEvents(flow[n-1], fresh[0])
		result.Merged = true
		result.Appended = append([]models.FlowEvent{flow[n-1]}, fresh[1:]...)
		flow = append(flow, fresh[1:]...)
	} else {
		result.Appended = fresh
		flow = append(flow, fresh...)
	}

	result.Flow = flow
	return result, nil
}

// dedupeEvents drops events whose id is already persisted or was seen
// earlier in the same batch. The returned events are copies.
func dedupeEvents(incoming, persisted []models.FlowEvent) []models.FlowEvent {
	seen := make(map[int]struct{}, len(persisted)+len(incoming))
	for _, e := range persisted {
		seen[e.ID] = struct{}{}
	}

	fresh := make([]models.FlowEvent, 0, len(incoming))
	for _, e := range incoming {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh
}

// replaceOutliers swaps every time outside (0, elapsed) for the mean of the
// times inside it, or for elapsed when none is.
func replaceOutliers(events []models.FlowEvent, elapsed float64) {
	var sum float64
	var proper int
	for _, e := range events {
		if e.Time > 0 && e.Time < elapsed {
			sum += e.Time
			proper++
		}
	}

	bestGuess := elapsed
	if proper > 0 {
		bestGuess = sum / float64(proper)
	}

	for i := range events {
		if events[i].Time <= 0 || events[i].Time > elapsed {
			events[i].Time = bestGuess
		}
	}
}

// rescaleTimes scales times so they sum to elapsed and returns the new sum.
func rescaleTimes(events []models.FlowEvent, elapsed float64) float64 {
	var sumTime float64
	for _, e := range events {
		sumTime += e.Time
	}
	if sumTime <= 0 {
		return 0
	}

	factor := elapsed / sumTime
	for i := range events {
		events[i].Time *= factor
	}
	return elapsed
}

// mergeEvents folds next into last. A later nil response does not erase the
// earlier answer.
func mergeEvents(last, next models.FlowEvent) models.FlowEvent {
	merged := last
	merged.Time += next.Time
	merged.EndTime = next.EndTime
	merged.Action = next.Action
	merged.State = next.State
	if next.Response != nil {
		merged.Response = next.Response
	}
	return merged
}
