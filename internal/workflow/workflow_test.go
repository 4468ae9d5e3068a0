package workflow

import (
	"errors"
	"testing"

	"github.com/nbousseta/atelier/internal/db"
	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gormDB
}

// seedPumpTemplate inserts tpl-001, a four-step pump overhaul chain
// (diagnose -> prepare -> execute -> verify) totalling 240 minutes, with two
// checkpoints on the diagnosis step.
func seedPumpTemplate(t *testing.T, gormDB *gorm.DB) {
	t.Helper()
	tpl := models.MaintenanceTemplate{
		ID:             "tpl-001",
		Name:           "Pump overhaul",
		Description:    "Full overhaul of a centrifugal pump",
		Category:       "mechanical",
		EquipmentTypes: models.EncodeStrings([]string{"pump", "rotating"}),
		EstimatedTotal: 240,
		Active:         true,
	}
	if err := gormDB.Create(&tpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}

	actions := []models.TemplateAction{
		{ID: "ta-1", TemplateID: tpl.ID, Title: "Diagnose vibration", Type: "diagnosis", Priority: "high", EstimatedDuration: 30, Position: 1},
		{ID: "ta-2", TemplateID: tpl.ID, Title: "Prepare work permit", Type: "preparation", Priority: "medium", EstimatedDuration: 60, Position: 2, DependsOn: models.EncodeStrings([]string{"ta-1"})},
		{ID: "ta-3", TemplateID: tpl.ID, Title: "Replace bearings", Type: "execution", Priority: "critical", EstimatedDuration: 120, Position: 3, DependsOn: models.EncodeStrings([]string{"ta-2"}), RequiresApproval: true},
		{ID: "ta-4", TemplateID: tpl.ID, Title: "Verify alignment", Type: "verification", Priority: "medium", EstimatedDuration: 30, Position: 4, DependsOn: models.EncodeStrings([]string{"ta-3"})},
	}
	for i := range actions {
		if err := gormDB.Create(&actions[i]).Error; err != nil {
			t.Fatalf("create template action: %v", err)
		}
	}

	checkpoints := []models.TemplateCheckpoint{
		{ID: "tc-1", ActionID: "ta-1", Title: "Record vibration spectrum", IsMandatory: true, Position: 1},
		{ID: "tc-2", ActionID: "ta-1", Title: "Photograph coupling", IsMandatory: false, Position: 2},
	}
	for i := range checkpoints {
		if err := gormDB.Create(&checkpoints[i]).Error; err != nil {
			t.Fatalf("create template checkpoint: %v", err)
		}
	}
}

func TestCreateFromTemplate(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)

	res, err := CreateFromTemplate(gormDB, "ABO-2024-158", "tpl-001")
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}
	if res.Replaced != nil {
		t.Errorf("Replaced = %v, want nil on first create", res.Replaced)
	}

	wf := res.Workflow
	if wf.AnomalyID != "ABO-2024-158" {
		t.Errorf("AnomalyID = %q", wf.AnomalyID)
	}
	if wf.Status != StatusPending {
		t.Errorf("Status = %q, want pending", wf.Status)
	}
	if wf.EstimatedDuration != 240 {
		t.Errorf("EstimatedDuration = %d, want 240", wf.EstimatedDuration)
	}
	if wf.TemplateID == nil || *wf.TemplateID != "tpl-001" {
		t.Errorf("TemplateID = %v, want tpl-001", wf.TemplateID)
	}
	if wf.Priority != "critical" {
		t.Errorf("Priority = %q, want critical (highest action priority)", wf.Priority)
	}
	if len(wf.Actions) != 4 {
		t.Fatalf("action count = %d, want 4", len(wf.Actions))
	}

	for i, a := range wf.Actions {
		if a.Status != StatusPending {
			t.Errorf("action %d status = %q, want pending", i, a.Status)
		}
		if a.Position != i+1 {
			t.Errorf("action %d position = %d, want %d", i, a.Position, i+1)
		}
		if a.AssignedTo != "" {
			t.Errorf("action %d assignee = %q, want empty", i, a.AssignedTo)
		}
		if a.StartedAt != nil || a.CompletedAt != nil {
			t.Errorf("action %d has timestamps on creation", i)
		}
		if a.ID == "ta-1" || a.ID == "ta-2" || a.ID == "ta-3" || a.ID == "ta-4" {
			t.Errorf("action %d kept template id %q, want fresh id", i, a.ID)
		}
	}

	// Checkpoints deep-copied, reset, and re-keyed.
	first := wf.Actions[0]
	if len(first.Checkpoints) != 2 {
		t.Fatalf("checkpoint count = %d, want 2", len(first.Checkpoints))
	}
	for _, cp := range first.Checkpoints {
		if cp.Completed {
			t.Errorf("checkpoint %s completed on creation", cp.ID)
		}
		if cp.CompletedAt != nil {
			t.Errorf("checkpoint %s has completed_at on creation", cp.ID)
		}
	}

	// Dependencies rewritten to the fresh action ids.
	second := wf.Actions[1]
	if len(second.Deps) != 1 {
		t.Fatalf("dep count on action 2 = %d, want 1", len(second.Deps))
	}
	if second.Deps[0].DependsOn != first.ID {
		t.Errorf("action 2 depends on %q, want %q", second.Deps[0].DependsOn, first.ID)
	}
}

func TestCreateFromTemplate_UnknownTemplate(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)

	_, err := CreateFromTemplate(gormDB, "ABO-1", "tpl-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// Store untouched.
	var count int64
	gormDB.Model(&models.MaintenanceWorkflow{}).Count(&count)
	if count != 0 {
		t.Errorf("workflow count = %d after failed create, want 0", count)
	}
}

func TestCreateFromTemplate_ReplacesExisting(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)

	first, err := CreateFromTemplate(gormDB, "ABO-7", "tpl-001")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := CreateFromTemplate(gormDB, "ABO-7", "tpl-001")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if second.Replaced == nil {
		t.Fatal("Replaced = nil, want the previous workflow")
	}
	if second.Replaced.ID != first.Workflow.ID {
		t.Errorf("Replaced.ID = %q, want %q", second.Replaced.ID, first.Workflow.ID)
	}

	current, err := GetByAnomaly(gormDB, "ABO-7")
	if err != nil {
		t.Fatalf("GetByAnomaly: %v", err)
	}
	if current.ID != second.Workflow.ID {
		t.Errorf("live workflow = %q, want %q", current.ID, second.Workflow.ID)
	}

	var count int64
	gormDB.Model(&models.MaintenanceWorkflow{}).Count(&count)
	if count != 1 {
		t.Errorf("workflow count = %d, want 1", count)
	}
}

func TestCreateCustom(t *testing.T) {
	gormDB := openTestDB(t)

	defs := []ActionDef{
		{Title: "Isolate breaker", Type: "preparation", EstimatedDuration: 20},
		{Title: "Swap relay", Type: "execution", EstimatedDuration: 45, DependsOn: []int{1},
			Checkpoints: []CheckpointDef{{Title: "Continuity test", Mandatory: true}}},
		{Title: "Close out permit", Type: "documentation", EstimatedDuration: 10, DependsOn: []int{2}},
	}

	res, err := CreateCustom(gormDB, "ABO-42", "Relay replacement", "high", defs)
	if err != nil {
		t.Fatalf("CreateCustom: %v", err)
	}
	wf := res.Workflow

	if wf.EstimatedDuration != 75 {
		t.Errorf("EstimatedDuration = %d, want 75", wf.EstimatedDuration)
	}
	if wf.TemplateID != nil {
		t.Errorf("TemplateID = %v, want nil for custom workflow", wf.TemplateID)
	}
	if len(wf.Actions) != 3 {
		t.Fatalf("action count = %d", len(wf.Actions))
	}
	for i, a := range wf.Actions {
		if a.Position != i+1 {
			t.Errorf("action %d position = %d, want %d", i, a.Position, i+1)
		}
	}
	if len(wf.Actions[1].Deps) != 1 || wf.Actions[1].Deps[0].DependsOn != wf.Actions[0].ID {
		t.Errorf("action 2 deps = %v, want dependency on action 1", wf.Actions[1].Deps)
	}
	if len(wf.Actions[1].Checkpoints) != 1 {
		t.Errorf("checkpoint count = %d, want 1", len(wf.Actions[1].Checkpoints))
	}
}

func TestCreateCustom_BadDependencyPosition(t *testing.T) {
	gormDB := openTestDB(t)

	_, err := CreateCustom(gormDB, "ABO-43", "Bad deps", "", []ActionDef{
		{Title: "Only step", DependsOn: []int{5}},
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestCreateCustom_DependencyCycle(t *testing.T) {
	gormDB := openTestDB(t)

	_, err := CreateCustom(gormDB, "ABO-44", "Cyclic", "", []ActionDef{
		{Title: "A", DependsOn: []int{2}},
		{Title: "B", DependsOn: []int{1}},
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for cycle", err)
	}
}

func TestCreateCustom_SelfDependency(t *testing.T) {
	gormDB := openTestDB(t)

	_, err := CreateCustom(gormDB, "ABO-45", "Selfish", "", []ActionDef{
		{Title: "A", DependsOn: []int{1}},
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for self-dependency", err)
	}
}

func TestGetByAnomaly_NoWorkflow(t *testing.T) {
	gormDB := openTestDB(t)

	wf, err := GetByAnomaly(gormDB, "ABO-nothing")
	if err != nil {
		t.Fatalf("GetByAnomaly: %v", err)
	}
	if wf != nil {
		t.Errorf("wf = %v, want nil", wf)
	}
}

func TestGet_NotFound(t *testing.T) {
	gormDB := openTestDB(t)
	if _, err := Get(gormDB, "wf-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList_Filters(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)

	if _, err := CreateFromTemplate(gormDB, "ABO-1", "tpl-001"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateCustom(gormDB, "ABO-2", "Custom job", "low", []ActionDef{{Title: "Step"}}); err != nil {
		t.Fatalf("create custom: %v", err)
	}

	all, err := List(gormDB, Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	lows, err := List(gormDB, Filters{Priority: "low"})
	if err != nil {
		t.Fatalf("List low: %v", err)
	}
	if len(lows) != 1 || lows[0].AnomalyID != "ABO-2" {
		t.Errorf("priority filter returned %v", lows)
	}

	fromTpl, err := List(gormDB, Filters{TemplateID: "tpl-001"})
	if err != nil {
		t.Fatalf("List template: %v", err)
	}
	if len(fromTpl) != 1 || fromTpl[0].AnomalyID != "ABO-1" {
		t.Errorf("template filter returned %v", fromTpl)
	}
}

func TestUpdate_StatusTransitions(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)
	res, _ := CreateFromTemplate(gormDB, "ABO-9", "tpl-001")
	id := res.Workflow.ID

	wf, err := Update(gormDB, id, map[string]interface{}{"status": StatusInProgress, "assigned_to": "y.alami"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if wf.Status != StatusInProgress {
		t.Errorf("Status = %q", wf.Status)
	}
	if wf.StartedAt == nil {
		t.Error("StartedAt not stamped on in_progress")
	}
	if wf.AssignedTo != "y.alami" {
		t.Errorf("AssignedTo = %q", wf.AssignedTo)
	}

	wf, err = Update(gormDB, id, map[string]interface{}{"status": StatusCompleted})
	if err != nil {
		t.Fatalf("Update to completed: %v", err)
	}
	if wf.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}

	// completed is terminal for workflows.
	if _, err := Update(gormDB, id, map[string]interface{}{"status": StatusInProgress}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	gormDB := openTestDB(t)
	if _, err := Update(gormDB, "wf-nope", map[string]interface{}{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	gormDB := openTestDB(t)
	seedPumpTemplate(t, gormDB)
	res, _ := CreateFromTemplate(gormDB, "ABO-del", "tpl-001")
	id := res.Workflow.ID

	if err := Delete(gormDB, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	wf, err := GetByAnomaly(gormDB, "ABO-del")
	if err != nil {
		t.Fatalf("GetByAnomaly after delete: %v", err)
	}
	if wf != nil {
		t.Errorf("workflow still resolvable after delete: %v", wf)
	}

	// Owned rows are gone too.
	var actions, deps, cps int64
	gormDB.Model(&models.MaintenanceAction{}).Where("workflow_id = ?", id).Count(&actions)
	gormDB.Model(&models.ActionDep{}).Count(&deps)
	gormDB.Model(&models.MaintenanceCheckpoint{}).Count(&cps)
	if actions != 0 || deps != 0 || cps != 0 {
		t.Errorf("orphans after delete: actions=%d deps=%d checkpoints=%d", actions, deps, cps)
	}

	if err := Delete(gormDB, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("wf")
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if len(id) != 8 || id[:3] != "wf-" {
		t.Errorf("id = %q, want wf-xxxxx", id)
	}
}
