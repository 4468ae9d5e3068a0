package workflow

import (
	"errors"
	"testing"

	"github.com/nbousseta/atelier/internal/models"
)

func TestAddDep_AndListDeps(t *testing.T) {
	gormDB := openTestDB(t)
	res, err := CreateCustom(gormDB, "ABO-dep-1", "Two steps", "", []ActionDef{
		{Title: "A"}, {Title: "B"},
	})
	if err != nil {
		t.Fatalf("CreateCustom: %v", err)
	}
	a, b := res.Workflow.Actions[0], res.Workflow.Actions[1]

	if err := AddDep(gormDB, b.ID, a.ID); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	blockers, dependents, err := ListDeps(gormDB, b.ID)
	if err != nil {
		t.Fatalf("ListDeps: %v", err)
	}
	if len(blockers) != 1 || blockers[0].DependsOn != a.ID {
		t.Errorf("blockers = %v", blockers)
	}
	if len(dependents) != 0 {
		t.Errorf("dependents of b = %v, want none", dependents)
	}

	// The inverse view from a's perspective.
	_, aDependents, err := ListDeps(gormDB, a.ID)
	if err != nil {
		t.Fatalf("ListDeps a: %v", err)
	}
	if len(aDependents) != 1 || aDependents[0].ActionID != b.ID {
		t.Errorf("dependents of a = %v, want b", aDependents)
	}
}

func TestAddDep_SelfDependency(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := CreateCustom(gormDB, "ABO-dep-2", "One step", "", []ActionDef{{Title: "A"}})
	a := res.Workflow.Actions[0]

	if err := AddDep(gormDB, a.ID, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestAddDep_UnknownAction(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := CreateCustom(gormDB, "ABO-dep-3", "One step", "", []ActionDef{{Title: "A"}})
	a := res.Workflow.Actions[0]

	if err := AddDep(gormDB, a.ID, "ac-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddDep_CrossWorkflow(t *testing.T) {
	gormDB := openTestDB(t)
	res1, _ := CreateCustom(gormDB, "ABO-dep-4a", "First", "", []ActionDef{{Title: "A"}})
	res2, _ := CreateCustom(gormDB, "ABO-dep-4b", "Second", "", []ActionDef{{Title: "B"}})

	err := AddDep(gormDB, res1.Workflow.Actions[0].ID, res2.Workflow.Actions[0].ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for cross-workflow dep", err)
	}
}

func TestAddDep_CycleDetection(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := CreateCustom(gormDB, "ABO-dep-5", "Chain", "", []ActionDef{
		{Title: "A"}, {Title: "B"}, {Title: "C"},
	})
	a, b, c := res.Workflow.Actions[0], res.Workflow.Actions[1], res.Workflow.Actions[2]

	if err := AddDep(gormDB, b.ID, a.ID); err != nil {
		t.Fatalf("AddDep b<-a: %v", err)
	}
	if err := AddDep(gormDB, c.ID, b.ID); err != nil {
		t.Fatalf("AddDep c<-b: %v", err)
	}

	// a depending on c closes the loop.
	if err := AddDep(gormDB, a.ID, c.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for transitive cycle", err)
	}
}

func TestRemoveDep(t *testing.T) {
	gormDB := openTestDB(t)
	res, _ := CreateCustom(gormDB, "ABO-dep-6", "Two", "", []ActionDef{
		{Title: "A"}, {Title: "B", DependsOn: []int{1}},
	})
	a, b := res.Workflow.Actions[0], res.Workflow.Actions[1]

	if err := RemoveDep(gormDB, b.ID, a.ID); err != nil {
		t.Fatalf("RemoveDep: %v", err)
	}
	if err := RemoveDep(gormDB, b.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestReadyActions(t *testing.T) {
	gormDB := openTestDB(t)
	wf := setupWorkflow(t, gormDB, "ABO-dep-7")

	// Only the first action of the chain is ready.
	ready, err := ReadyActions(gormDB, wf.ID)
	if err != nil {
		t.Fatalf("ReadyActions: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != wf.Actions[0].ID {
		t.Fatalf("ready = %v, want only the first action", ready)
	}

	// Completing it frees the second.
	if _, err := Complete(gormDB, wf.Actions[0].ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	ready, err = ReadyActions(gormDB, wf.ID)
	if err != nil {
		t.Fatalf("ReadyActions: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != wf.Actions[1].ID {
		t.Fatalf("ready after complete = %v, want only the second action", ready)
	}
}

func TestCanActionStart(t *testing.T) {
	done := models.MaintenanceAction{ID: "a1", Status: StatusCompleted}
	open := models.MaintenanceAction{ID: "a2", Status: StatusPending}

	cases := []struct {
		name   string
		action models.MaintenanceAction
		all    []models.MaintenanceAction
		want   bool
	}{
		{
			name:   "pending no deps",
			action: models.MaintenanceAction{ID: "x", Status: StatusPending},
			all:    nil,
			want:   true,
		},
		{
			name:   "not pending even without deps",
			action: models.MaintenanceAction{ID: "x", Status: StatusInProgress},
			all:    nil,
			want:   false,
		},
		{
			name: "dep completed",
			action: models.MaintenanceAction{ID: "x", Status: StatusPending,
				Deps: []models.ActionDep{{ActionID: "x", DependsOn: "a1"}}},
			all:  []models.MaintenanceAction{done},
			want: true,
		},
		{
			name: "dep not completed",
			action: models.MaintenanceAction{ID: "x", Status: StatusPending,
				Deps: []models.ActionDep{{ActionID: "x", DependsOn: "a2"}}},
			all:  []models.MaintenanceAction{open},
			want: false,
		},
		{
			name: "dep missing from set",
			action: models.MaintenanceAction{ID: "x", Status: StatusPending,
				Deps: []models.ActionDep{{ActionID: "x", DependsOn: "ghost"}}},
			all:  []models.MaintenanceAction{done, open},
			want: false,
		},
		{
			name: "mixed deps one open",
			action: models.MaintenanceAction{ID: "x", Status: StatusPending,
				Deps: []models.ActionDep{{ActionID: "x", DependsOn: "a1"}, {ActionID: "x", DependsOn: "a2"}}},
			all:  []models.MaintenanceAction{done, open},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanActionStart(tc.action, tc.all); got != tc.want {
				t.Errorf("CanActionStart = %v, want %v", got, tc.want)
			}
		})
	}
}
