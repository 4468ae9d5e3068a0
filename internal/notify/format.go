package notify

import (
	"fmt"
	"strings"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
)

// actionStatusVerb returns a human-friendly verb for an action status change.
func actionStatusVerb(newStatus string) string {
	switch newStatus {
	case workflow.StatusInProgress:
		return "started"
	case workflow.StatusCompleted:
		return "completed"
	case workflow.StatusBlocked:
		return "blocked"
	case workflow.StatusCancelled:
		return "cancelled"
	default:
		return newStatus
	}
}

// actionStatusSeverity returns the severity for an action status.
func actionStatusSeverity(newStatus string) string {
	switch newStatus {
	case workflow.StatusCompleted:
		return "success"
	case workflow.StatusBlocked:
		return "warning"
	default:
		return "info"
	}
}

// FormatActionEvent formats an action status change.
func FormatActionEvent(anomalyID string, action models.MaintenanceAction, oldStatus string) Event {
	verb := actionStatusVerb(action.Status)
	severity := actionStatusSeverity(action.Status)

	title := fmt.Sprintf("Action %s %s", action.ID, verb)

	var bodyParts []string
	if action.Title != "" {
		bodyParts = append(bodyParts, action.Title)
	}
	if oldStatus != "" {
		bodyParts = append(bodyParts, fmt.Sprintf("%s -> %s", oldStatus, action.Status))
	}

	fields := []Field{
		{Name: "Anomaly", Value: anomalyID, Short: true},
		{Name: "Status", Value: action.Status, Short: true},
	}
	if action.AssignedTo != "" {
		fields = append(fields, Field{Name: "Assignee", Value: action.AssignedTo, Short: true})
	}

	return Event{
		Title:    title,
		Body:     strings.Join(bodyParts, "\n"),
		Severity: severity,
		Fields:   fields,
	}
}

// FormatOverdueEvent formats a newly overdue action.
func FormatOverdueEvent(anomalyID string, action models.MaintenanceAction) Event {
	title := fmt.Sprintf("Action %s overdue", action.ID)

	var bodyParts []string
	if action.Title != "" {
		bodyParts = append(bodyParts, action.Title)
	}
	if action.DueAt != nil {
		bodyParts = append(bodyParts, fmt.Sprintf("Due %s", action.DueAt.Format("2006-01-02 15:04")))
	}

	fields := []Field{
		{Name: "Anomaly", Value: anomalyID, Short: true},
		{Name: "Status", Value: action.Status, Short: true},
	}
	if action.AssignedTo != "" {
		fields = append(fields, Field{Name: "Assignee", Value: action.AssignedTo, Short: true})
	}

	severity := "warning"
	if action.Priority == "critical" {
		severity = "error"
	}

	return Event{
		Title:    title,
		Body:     strings.Join(bodyParts, "\n"),
		Severity: severity,
		Fields:   fields,
	}
}

// FormatBlockedEvent formats an action stuck in blocked state.
func FormatBlockedEvent(anomalyID string, action models.MaintenanceAction, reason string) Event {
	var bodyParts []string
	if action.Title != "" {
		bodyParts = append(bodyParts, action.Title)
	}
	if reason != "" {
		bodyParts = append(bodyParts, reason)
	}

	return Event{
		Title:    fmt.Sprintf("Action %s blocked", action.ID),
		Body:     strings.Join(bodyParts, "\n"),
		Severity: "warning",
		Fields: []Field{
			{Name: "Anomaly", Value: anomalyID, Short: true},
			{Name: "Priority", Value: action.Priority, Short: true},
		},
	}
}

// FormatWorkflowDigest formats a summary of one workflow's state.
func FormatWorkflowDigest(wf *models.MaintenanceWorkflow, a *workflow.Analytics) Event {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Progress**: %d%% (%d/%d actions)",
		a.ProgressPercentage, a.CompletedActions, a.TotalActions))
	if a.OverdueActions > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Overdue**: %d", a.OverdueActions))
	}
	if a.BlockedActions > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Blocked**: %d", a.BlockedActions))
	}

	severity := "info"
	if a.OverdueActions > 0 {
		severity = "warning"
	}

	fields := []Field{
		{Name: "Anomaly", Value: wf.AnomalyID, Short: true},
		{Name: "Status", Value: wf.Status, Short: true},
		{Name: "Progress", Value: fmt.Sprintf("%d%%", a.ProgressPercentage), Short: true},
	}

	return Event{
		Title:    fmt.Sprintf("Workflow %s: %s", wf.ID, wf.Title),
		Body:     strings.Join(bodyLines, "\n"),
		Severity: severity,
		Fields:   fields,
	}
}
