package workflow

import (
	"math"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// Analytics holds derived statistics for one workflow. Values are recomputed
// on read, never cached.
type Analytics struct {
	TotalActions          int
	CompletedActions      int
	ProgressPercentage    int
	AverageCompletionTime float64 // mean actual duration in minutes over completed actions
	OverdueActions        int
	BlockedActions        int
}

// WorkflowAnalytics computes statistics for a workflow. Overdue counts only
// actions that carry an explicit due date; actions without one are never
// overdue.
func WorkflowAnalytics(db *gorm.DB, workflowID string) (*Analytics, error) {
	wf, err := Get(db, workflowID)
	if err != nil {
		return nil, err
	}

	a := &Analytics{TotalActions: len(wf.Actions)}
	now := time.Now()

	var durationSum, durationCount int
	for _, action := range wf.Actions {
		switch action.Status {
		case StatusCompleted:
			a.CompletedActions++
			if action.ActualDuration != nil {
				durationSum += *action.ActualDuration
				durationCount++
			}
		case StatusBlocked:
			a.BlockedActions++
		}
		if isOverdue(action, now) {
			a.OverdueActions++
		}
	}

	a.ProgressPercentage = CalculateProgress(wf.Actions)
	if durationCount > 0 {
		a.AverageCompletionTime = float64(durationSum) / float64(durationCount)
	}
	return a, nil
}

// CalculateProgress returns the completed share of an action list as a
// rounded percentage; an empty list is 0.
func CalculateProgress(actions []models.MaintenanceAction) int {
	if len(actions) == 0 {
		return 0
	}
	completed := 0
	for _, a := range actions {
		if a.Status == StatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(actions)) * 100))
}

// isOverdue reports whether an action with an explicit due date has passed
// it without reaching a terminal state.
func isOverdue(action models.MaintenanceAction, now time.Time) bool {
	if action.DueAt == nil {
		return false
	}
	if action.Status == StatusCompleted || action.Status == StatusCancelled {
		return false
	}
	return action.DueAt.Before(now)
}
