package dashboard

import (
	"fmt"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
	"gorm.io/gorm"
)

// OverviewStats holds the front-page workflow counters.
type OverviewStats struct {
	TotalWorkflows  int64
	Pending         int64
	InProgress      int64
	Completed       int64
	OverdueActions  int64
	BlockedActions  int64
	ActiveTemplates int64
}

// Overview returns the front-page counters.
func Overview(db *gorm.DB) (*OverviewStats, error) {
	if db == nil {
		return nil, fmt.Errorf("no database connection")
	}

	stats := &OverviewStats{}
	if err := db.Model(&models.MaintenanceWorkflow{}).Count(&stats.TotalWorkflows).Error; err != nil {
		return nil, err
	}
	db.Model(&models.MaintenanceWorkflow{}).Where("status = ?", workflow.StatusPending).Count(&stats.Pending)
	db.Model(&models.MaintenanceWorkflow{}).Where("status = ?", workflow.StatusInProgress).Count(&stats.InProgress)
	db.Model(&models.MaintenanceWorkflow{}).Where("status = ?", workflow.StatusCompleted).Count(&stats.Completed)
	db.Model(&models.MaintenanceAction{}).Where("status = ?", workflow.StatusBlocked).Count(&stats.BlockedActions)
	db.Model(&models.MaintenanceAction{}).
		Where("due_at IS NOT NULL AND due_at < ? AND status NOT IN ?",
			time.Now(), []string{workflow.StatusCompleted, workflow.StatusCancelled}).
		Count(&stats.OverdueActions)
	db.Model(&models.MaintenanceTemplate{}).Where("active = ?", true).Count(&stats.ActiveTemplates)

	return stats, nil
}

// WorkflowRow holds workflow data for the list view.
type WorkflowRow struct {
	ID                string
	AnomalyID         string
	Title             string
	Status            string
	StatusLabel       string
	StatusBadge       string
	Priority          string
	AssignedTo        string
	EstimatedDuration string
	CreatedAt         time.Time
}

// WorkflowListResult holds the workflow list plus metadata for filter dropdowns.
type WorkflowListResult struct {
	Workflows  []WorkflowRow
	Statuses   []string
	Priorities []string
}

// WorkflowList returns workflows matching filters, newest first, plus distinct
// values for filter dropdowns.
func WorkflowList(db *gorm.DB, status, priority string) WorkflowListResult {
	if db == nil {
		return WorkflowListResult{Workflows: []WorkflowRow{}}
	}

	q := db.Model(&models.MaintenanceWorkflow{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if priority != "" {
		q = q.Where("priority = ?", priority)
	}

	var workflows []models.MaintenanceWorkflow
	q.Order("created_at DESC").Find(&workflows)

	rows := make([]WorkflowRow, len(workflows))
	for i, wf := range workflows {
		cfg := workflow.GetStatusConfig(wf.Status)
		rows[i] = WorkflowRow{
			ID:                wf.ID,
			AnomalyID:         wf.AnomalyID,
			Title:             wf.Title,
			Status:            wf.Status,
			StatusLabel:       cfg.Label,
			StatusBadge:       cfg.Badge,
			Priority:          wf.Priority,
			AssignedTo:        wf.AssignedTo,
			EstimatedDuration: workflow.FormatDuration(wf.EstimatedDuration),
			CreatedAt:         wf.CreatedAt,
		}
	}

	// Distinct values for filter dropdowns.
	var statuses []string
	db.Model(&models.MaintenanceWorkflow{}).Distinct("status").Order("status ASC").Pluck("status", &statuses)
	var priorities []string
	db.Model(&models.MaintenanceWorkflow{}).Distinct("priority").Order("priority ASC").Pluck("priority", &priorities)

	return WorkflowListResult{
		Workflows:  rows,
		Statuses:   statuses,
		Priorities: priorities,
	}
}

// CheckpointRow holds a checkpoint for the detail view.
type CheckpointRow struct {
	ID          string
	Title       string
	IsMandatory bool
	Completed   bool
	CompletedAt *time.Time
}

// NoteRow holds a note for the detail view.
type NoteRow struct {
	Content   string
	CreatedAt time.Time
}

// ActionRow holds full action data for the detail view.
type ActionRow struct {
	ID                string
	Position          int
	Title             string
	Type              string
	TypeLabel         string
	TypeIcon          string
	Status            string
	StatusLabel       string
	StatusBadge       string
	Priority          string
	AssignedTo        string
	Progress          int
	EstimatedDuration string
	ActualDuration    string
	DueAt             *time.Time
	Overdue           bool
	Ready             bool
	BlockedBy         []string
	Checkpoints       []CheckpointRow
	Notes             []NoteRow
}

// WorkflowDetail holds everything the detail page renders.
type WorkflowDetail struct {
	ID                string
	AnomalyID         string
	Title             string
	Status            string
	StatusLabel       string
	StatusBadge       string
	Priority          string
	AssignedTo        string
	EstimatedDuration string
	ActualDuration    string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time

	Analytics *workflow.Analytics
	Actions   []ActionRow
}

// GetWorkflowDetail returns full workflow data for the detail page.
func GetWorkflowDetail(db *gorm.DB, id string) (*WorkflowDetail, error) {
	if db == nil {
		return nil, fmt.Errorf("no database connection")
	}

	wf, err := workflow.Get(db, id)
	if err != nil {
		return nil, err
	}
	analytics, err := workflow.WorkflowAnalytics(db, id)
	if err != nil {
		return nil, err
	}

	cfg := workflow.GetStatusConfig(wf.Status)
	detail := &WorkflowDetail{
		ID:                wf.ID,
		AnomalyID:         wf.AnomalyID,
		Title:             wf.Title,
		Status:            wf.Status,
		StatusLabel:       cfg.Label,
		StatusBadge:       cfg.Badge,
		Priority:          wf.Priority,
		AssignedTo:        wf.AssignedTo,
		EstimatedDuration: workflow.FormatDuration(wf.EstimatedDuration),
		CreatedAt:         wf.CreatedAt,
		StartedAt:         wf.StartedAt,
		CompletedAt:       wf.CompletedAt,
		Analytics:         analytics,
	}
	if wf.ActualDuration != nil {
		detail.ActualDuration = workflow.FormatDuration(*wf.ActualDuration)
	}

	now := time.Now()
	detail.Actions = make([]ActionRow, len(wf.Actions))
	for i, a := range wf.Actions {
		st := workflow.GetStatusConfig(a.Status)
		tp := workflow.GetTypeConfig(a.Type)
		row := ActionRow{
			ID:                a.ID,
			Position:          a.Position,
			Title:             a.Title,
			Type:              a.Type,
			TypeLabel:         tp.Label,
			TypeIcon:          tp.Icon,
			Status:            a.Status,
			StatusLabel:       st.Label,
			StatusBadge:       st.Badge,
			Priority:          a.Priority,
			AssignedTo:        a.AssignedTo,
			Progress:          a.ProgressPercentage,
			EstimatedDuration: workflow.FormatDuration(a.EstimatedDuration),
			DueAt:             a.DueAt,
			Ready:             workflow.CanActionStart(a, wf.Actions),
		}
		if a.ActualDuration != nil {
			row.ActualDuration = workflow.FormatDuration(*a.ActualDuration)
		}
		if a.DueAt != nil && a.DueAt.Before(now) &&
			a.Status != workflow.StatusCompleted && a.Status != workflow.StatusCancelled {
			row.Overdue = true
		}
		for _, d := range a.Deps {
			row.BlockedBy = append(row.BlockedBy, d.DependsOn)
		}
		for _, cp := range a.Checkpoints {
			row.Checkpoints = append(row.Checkpoints, CheckpointRow{
				ID:          cp.ID,
				Title:       cp.Title,
				IsMandatory: cp.IsMandatory,
				Completed:   cp.Completed,
				CompletedAt: cp.CompletedAt,
			})
		}
		for _, n := range a.Notes {
			row.Notes = append(row.Notes, NoteRow{Content: n.Content, CreatedAt: n.CreatedAt})
		}
		detail.Actions[i] = row
	}

	return detail, nil
}

// TemplateRow holds template data for the list view.
type TemplateRow struct {
	ID             string
	Name           string
	Category       string
	EquipmentTypes []string
	ActionCount    int
	EstimatedTotal string
	Active         bool
}

// TemplateList returns all templates for the template page.
func TemplateList(db *gorm.DB) ([]TemplateRow, error) {
	if db == nil {
		return nil, fmt.Errorf("no database connection")
	}

	var templates []models.MaintenanceTemplate
	if err := db.Preload("Actions").Order("id ASC").Find(&templates).Error; err != nil {
		return nil, err
	}

	rows := make([]TemplateRow, len(templates))
	for i, t := range templates {
		rows[i] = TemplateRow{
			ID:             t.ID,
			Name:           t.Name,
			Category:       t.Category,
			EquipmentTypes: models.DecodeStrings(t.EquipmentTypes),
			ActionCount:    len(t.Actions),
			EstimatedTotal: workflow.FormatDuration(t.EstimatedTotal),
			Active:         t.Active,
		}
	}
	return rows, nil
}

// ResourceRow holds resource data for the list view.
type ResourceRow struct {
	ID       string
	Name     string
	Type     string
	Quantity int
	Unit     string
	UnitCost float64
	Supplier string
}

// ResourceList returns resources, optionally filtered by type.
func ResourceList(db *gorm.DB, resourceType string) ([]ResourceRow, error) {
	if db == nil {
		return nil, fmt.Errorf("no database connection")
	}

	q := db.Model(&models.MaintenanceResource{})
	if resourceType != "" {
		q = q.Where("type = ?", resourceType)
	}

	var resources []models.MaintenanceResource
	if err := q.Order("type ASC, name ASC").Find(&resources).Error; err != nil {
		return nil, err
	}

	rows := make([]ResourceRow, len(resources))
	for i, r := range resources {
		rows[i] = ResourceRow{
			ID:       r.ID,
			Name:     r.Name,
			Type:     r.Type,
			Quantity: r.Quantity,
			Unit:     r.Unit,
			UnitCost: r.UnitCost,
			Supplier: r.Supplier,
		}
	}
	return rows, nil
}
