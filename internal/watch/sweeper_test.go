package watch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nbousseta/atelier/internal/db"
	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormDB
}

func newTestSweeper(t *testing.T, gormDB *gorm.DB) *Sweeper {
	t.Helper()
	s, err := NewSweeper(SweeperOpts{DB: gormDB})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	return s
}

func TestNewSweeper_Validation(t *testing.T) {
	if _, err := NewSweeper(SweeperOpts{}); err == nil {
		t.Error("expected error without db")
	}
	gormDB := openTestDB(t)
	if _, err := NewSweeper(SweeperOpts{DB: gormDB, Schedule: "bogus"}); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewSweeper(SweeperOpts{DB: gormDB, Schedule: "0 6 * * 1"}); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
}

func TestPoll_FirstSweepSeedsSilently(t *testing.T) {
	gormDB := openTestDB(t)
	res, err := workflow.CreateCustom(gormDB, "ABO-sw-1", "Sweep", "", []workflow.ActionDef{
		{Title: "A"}, {Title: "B"},
	})
	if err != nil {
		t.Fatalf("CreateCustom: %v", err)
	}
	if _, err := workflow.Pause(gormDB, res.Workflow.Actions[0].ID, "pre-existing block"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	s := newTestSweeper(t, gormDB)
	events, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("first sweep emitted %d events, want 0", len(events))
	}
	if !s.Seeded() {
		t.Error("sweeper not seeded after first poll")
	}
}

func TestPoll_DetectsTransitions(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := workflow.CreateCustom(gormDB, "ABO-sw-2", "Sweep", "", []workflow.ActionDef{
		{Title: "A"}, {Title: "B"},
	})
	a, b := res.Workflow.Actions[0], res.Workflow.Actions[1]

	s := newTestSweeper(t, gormDB)
	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	if _, err := workflow.Pause(gormDB, a.ID, "crane unavailable"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := workflow.Complete(gormDB, b.ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	events, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (blocked + completed)", len(events))
	}

	var sawBlocked, sawCompleted bool
	for _, evt := range events {
		if strings.Contains(evt.Title, "blocked") {
			sawBlocked = true
		}
		if strings.Contains(evt.Title, "completed") {
			sawCompleted = true
		}
	}
	if !sawBlocked || !sawCompleted {
		t.Errorf("events = %v, want one blocked and one completed", events)
	}

	// Steady state: nothing new to report.
	events, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("steady state emitted %d events, want 0", len(events))
	}
}

func TestPoll_OverdueNotifiedOnce(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := workflow.CreateCustom(gormDB, "ABO-sw-3", "Sweep", "", []workflow.ActionDef{
		{Title: "A"},
	})
	a := res.Workflow.Actions[0]

	s := newTestSweeper(t, gormDB)
	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if err := gormDB.Model(&models.MaintenanceAction{}).Where("id = ?", a.ID).
		Update("due_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	events, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 || !strings.Contains(events[0].Title, "overdue") {
		t.Fatalf("events = %v, want one overdue event", events)
	}

	// The same overdue action is not re-reported.
	events, _ = s.Poll(context.Background())
	if len(events) != 0 {
		t.Errorf("repeat sweep emitted %d events, want 0", len(events))
	}

	// Completing the action clears the overdue state; a later overdue on the
	// same action would notify again.
	if _, err := workflow.Complete(gormDB, a.ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	events, _ = s.Poll(context.Background())
	for _, evt := range events {
		if strings.Contains(evt.Title, "overdue") {
			t.Errorf("completed action reported overdue: %v", evt)
		}
	}
}
