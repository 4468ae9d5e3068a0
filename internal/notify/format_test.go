package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
)

func TestFormatActionEvent(t *testing.T) {
	action := models.MaintenanceAction{
		ID:         "ac-12345",
		Title:      "Replace bearings",
		Status:     workflow.StatusCompleted,
		AssignedTo: "r.tazi",
	}

	evt := FormatActionEvent("ABO-2024-001", action, workflow.StatusInProgress)
	if evt.Title != "Action ac-12345 completed" {
		t.Errorf("Title = %q", evt.Title)
	}
	if evt.Severity != "success" {
		t.Errorf("Severity = %q", evt.Severity)
	}
	if !strings.Contains(evt.Body, "Replace bearings") {
		t.Errorf("Body = %q, missing action title", evt.Body)
	}
	if !strings.Contains(evt.Body, "in_progress -> completed") {
		t.Errorf("Body = %q, missing transition", evt.Body)
	}

	var foundAssignee bool
	for _, f := range evt.Fields {
		if f.Name == "Assignee" && f.Value == "r.tazi" {
			foundAssignee = true
		}
	}
	if !foundAssignee {
		t.Errorf("Fields = %v, missing assignee", evt.Fields)
	}
}

func TestFormatActionEvent_BlockedIsWarning(t *testing.T) {
	action := models.MaintenanceAction{ID: "ac-1", Status: workflow.StatusBlocked}
	evt := FormatActionEvent("ABO-1", action, workflow.StatusInProgress)
	if evt.Severity != "warning" {
		t.Errorf("Severity = %q, want warning", evt.Severity)
	}
	if evt.Title != "Action ac-1 blocked" {
		t.Errorf("Title = %q", evt.Title)
	}
}

func TestFormatOverdueEvent(t *testing.T) {
	due := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	action := models.MaintenanceAction{
		ID:       "ac-2",
		Title:    "Verify alignment",
		Status:   workflow.StatusPending,
		Priority: "critical",
		DueAt:    &due,
	}

	evt := FormatOverdueEvent("ABO-2", action)
	if evt.Severity != "error" {
		t.Errorf("Severity = %q, want error for critical action", evt.Severity)
	}
	if !strings.Contains(evt.Body, "2026-08-20 14:00") {
		t.Errorf("Body = %q, missing due date", evt.Body)
	}

	action.Priority = "medium"
	if evt := FormatOverdueEvent("ABO-2", action); evt.Severity != "warning" {
		t.Errorf("Severity = %q, want warning for non-critical action", evt.Severity)
	}
}

func TestFormatWorkflowDigest(t *testing.T) {
	wf := &models.MaintenanceWorkflow{
		ID:        "wf-1",
		AnomalyID: "ABO-3",
		Title:     "Pump overhaul",
		Status:    workflow.StatusInProgress,
	}
	analytics := &workflow.Analytics{
		TotalActions:       4,
		CompletedActions:   1,
		ProgressPercentage: 25,
		OverdueActions:     2,
	}

	evt := FormatWorkflowDigest(wf, analytics)
	if evt.Severity != "warning" {
		t.Errorf("Severity = %q, want warning when actions are overdue", evt.Severity)
	}
	if !strings.Contains(evt.Body, "25%") {
		t.Errorf("Body = %q, missing progress", evt.Body)
	}
	if !strings.Contains(evt.Body, "Overdue") {
		t.Errorf("Body = %q, missing overdue line", evt.Body)
	}

	analytics.OverdueActions = 0
	if evt := FormatWorkflowDigest(wf, analytics); evt.Severity != "info" {
		t.Errorf("Severity = %q, want info without overdue actions", evt.Severity)
	}
}
