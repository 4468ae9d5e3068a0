// Package watch polls the store for maintenance actions that turned blocked
// or slipped past their due date and forwards them to notifiers on a cron
// schedule.
package watch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/notify"
	"github.com/nbousseta/atelier/internal/workflow"
	"gorm.io/gorm"
)

// DefaultSchedule is the sweep cadence when the config does not set one.
const DefaultSchedule = "*/15 * * * *"

// Sweeper polls action state and emits notification events for transitions
// into blocked or completed and for actions that became overdue. State is
// held in memory, so a restart re-baselines without emitting a burst.
type Sweeper struct {
	db       *gorm.DB
	schedule string

	mu          sync.Mutex
	snapshot    map[string]string // actionID -> last-known status
	overdueSent map[string]bool   // actionID -> overdue already notified
	seeded      bool
}

// SweeperOpts holds parameters for creating a Sweeper.
type SweeperOpts struct {
	DB       *gorm.DB
	Schedule string // 5-field cron expression; defaults to DefaultSchedule
}

// NewSweeper creates a Sweeper.
func NewSweeper(opts SweeperOpts) (*Sweeper, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("watch: db is required")
	}
	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		db:          opts.DB,
		schedule:    schedule,
		snapshot:    make(map[string]string),
		overdueSent: make(map[string]bool),
	}, nil
}

// Poll runs one detection cycle and returns the events to deliver. The first
// call seeds the status baseline without emitting.
func (s *Sweeper) Poll(ctx context.Context) ([]notify.Event, error) {
	actions, anomalies, err := s.loadActions()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var events []notify.Event
	now := time.Now()
	currentIDs := make(map[string]bool, len(actions))

	for _, a := range actions {
		currentIDs[a.ID] = true
		anomalyID := anomalies[a.WorkflowID]

		old, exists := s.snapshot[a.ID]
		s.snapshot[a.ID] = a.Status
		if s.seeded && exists && old != a.Status {
			switch a.Status {
			case workflow.StatusBlocked, workflow.StatusCompleted:
				events = append(events, notify.FormatActionEvent(anomalyID, a, old))
			}
		}

		if a.DueAt != nil && a.DueAt.Before(now) &&
			a.Status != workflow.StatusCompleted && a.Status != workflow.StatusCancelled {
			if s.seeded && !s.overdueSent[a.ID] {
				events = append(events, notify.FormatOverdueEvent(anomalyID, a))
			}
			s.overdueSent[a.ID] = true
		} else {
			delete(s.overdueSent, a.ID)
		}
	}

	// Drop state for actions deleted from the store.
	for id := range s.snapshot {
		if !currentIDs[id] {
			delete(s.snapshot, id)
			delete(s.overdueSent, id)
		}
	}

	s.seeded = true
	return events, nil
}

// Run sweeps on the configured cron schedule and forwards events to the
// notifier until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, notifier notify.Notifier) error {
	// Establish the baseline immediately instead of waiting a full period.
	if _, err := s.Poll(ctx); err != nil {
		return err
	}

	for {
		wait := nextCronDuration(s.schedule)
		if wait <= 0 {
			wait = time.Minute
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		events, err := s.Poll(ctx)
		if err != nil {
			log.Printf("watch: sweep failed: %v", err)
			continue
		}
		for _, evt := range events {
			if err := notifier.Send(ctx, evt); err != nil {
				log.Printf("watch: deliver %q: %v", evt.Title, err)
			}
		}
	}
}

// Seeded reports whether the baseline sweep has run.
func (s *Sweeper) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// loadActions fetches all actions plus a workflowID -> anomalyID index.
func (s *Sweeper) loadActions() ([]models.MaintenanceAction, map[string]string, error) {
	var actions []models.MaintenanceAction
	if err := s.db.Find(&actions).Error; err != nil {
		return nil, nil, fmt.Errorf("watch: load actions: %w", err)
	}

	var workflows []models.MaintenanceWorkflow
	if err := s.db.Select("id, anomaly_id").Find(&workflows).Error; err != nil {
		return nil, nil, fmt.Errorf("watch: load workflows: %w", err)
	}
	anomalies := make(map[string]string, len(workflows))
	for _, wf := range workflows {
		anomalies[wf.ID] = wf.AnomalyID
	}
	return actions, anomalies, nil
}
