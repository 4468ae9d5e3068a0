// Package workflow implements the maintenance workflow service: workflow
// factories, action and checkpoint mutators, the dependency graph, and
// derived analytics.
package workflow

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// Error kinds surfaced to callers. Wrapped with context; test with errors.Is.
var (
	// ErrNotFound means a template, workflow, action, or checkpoint ID did
	// not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means a mutation would violate a domain invariant:
	// illegal status transition, broken or cyclic dependency reference,
	// duplicate order, out-of-range progress.
	ErrInvalidState = errors.New("invalid state")
)

// CheckpointDef is a caller-supplied checkpoint definition.
type CheckpointDef struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Mandatory   bool   `yaml:"mandatory"`
}

// ActionDef is a caller-supplied action definition for custom workflows and
// AddAction. DependsOn references other actions in the same definition set
// by 1-based position.
type ActionDef struct {
	Title             string          `yaml:"title"`
	Description       string          `yaml:"description"`
	Type              string          `yaml:"type"`
	Priority          string          `yaml:"priority"`
	EstimatedDuration int             `yaml:"estimated_duration"` // minutes
	IsBlocking        bool            `yaml:"blocking"`
	RequiresApproval  bool            `yaml:"requires_approval"`
	Resources         []string        `yaml:"resources"`
	Skills            []string        `yaml:"skills"`
	Safety            []string        `yaml:"safety"`
	DueAt             *time.Time      `yaml:"due_at"`
	DependsOn         []int           `yaml:"depends_on"`
	Checkpoints       []CheckpointDef `yaml:"checkpoints"`
}

// CreateResult reports a workflow creation. Replaced carries the previous
// workflow for the anomaly when one existed; it is returned to the caller
// instead of being silently discarded.
type CreateResult struct {
	Workflow *models.MaintenanceWorkflow
	Replaced *models.MaintenanceWorkflow
}

// Filters holds optional filters for listing workflows.
type Filters struct {
	Status     string
	Priority   string
	AssignedTo string
	TemplateID string
}

// GenerateID creates a unique ID with the given prefix (5-char hex suffix).
func GenerateID(prefix string) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("workflow: generate ID: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(b)[:5], nil
}

// CreateFromTemplate instantiates a workflow for an anomaly by deep-copying a
// template: every template action becomes a fresh pending action with its
// checkpoints reset, and template-action dependency IDs are rewritten to the
// new action IDs. The workflow's estimated duration is the template's total.
// If a workflow already exists for the anomaly it is replaced and returned in
// CreateResult.Replaced.
func CreateFromTemplate(db *gorm.DB, anomalyID, templateID string) (*CreateResult, error) {
	if anomalyID == "" {
		return nil, fmt.Errorf("workflow: anomaly id is required")
	}

	var tpl models.MaintenanceTemplate
	err := db.Preload("Actions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Preload("Actions.Checkpoints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Where("id = ?", templateID).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow: template %s: %w", templateID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: load template %s: %w", templateID, err)
	}

	wfID, err := GenerateID("wf")
	if err != nil {
		return nil, err
	}

	wf := models.MaintenanceWorkflow{
		ID:                wfID,
		AnomalyID:         anomalyID,
		Title:             tpl.Name,
		Status:            StatusPending,
		Priority:          highestActionPriority(tpl.Actions),
		TemplateID:        &tpl.ID,
		EstimatedDuration: tpl.EstimatedTotal,
	}

	// Copy actions with fresh IDs; remember the mapping for dependency rewrite.
	idMap := make(map[string]string, len(tpl.Actions))
	actions := make([]models.MaintenanceAction, 0, len(tpl.Actions))
	var checkpoints []models.MaintenanceCheckpoint
	for _, ta := range tpl.Actions {
		actionID, err := GenerateID("ac")
		if err != nil {
			return nil, err
		}
		idMap[ta.ID] = actionID

		actions = append(actions, models.MaintenanceAction{
			ID:                 actionID,
			WorkflowID:         wfID,
			Title:              ta.Title,
			Description:        ta.Description,
			Type:               ta.Type,
			Status:             StatusPending,
			Priority:           ta.Priority,
			Position:           ta.Position,
			EstimatedDuration:  ta.EstimatedDuration,
			IsBlocking:         true,
			ResourcesNeeded:    ta.Resources,
			SkillsRequired:     ta.Skills,
			SafetyRequirements: ta.Safety,
			RequiresApproval:   ta.RequiresApproval,
		})

		for _, tc := range ta.Checkpoints {
			cpID, err := GenerateID("cp")
			if err != nil {
				return nil, err
			}
			checkpoints = append(checkpoints, models.MaintenanceCheckpoint{
				ID:          cpID,
				ActionID:    actionID,
				Title:       tc.Title,
				Description: tc.Description,
				IsMandatory: tc.IsMandatory,
				Completed:   false,
				Position:    tc.Position,
			})
		}
	}

	// Rewrite template-action dependency IDs to the fresh action IDs.
	var deps []models.ActionDep
	for _, ta := range tpl.Actions {
		for _, depID := range models.DecodeStrings(ta.DependsOn) {
			target, ok := idMap[depID]
			if !ok {
				return nil, fmt.Errorf("workflow: template %s: action %s depends on unknown action %s: %w",
					templateID, ta.ID, depID, ErrInvalidState)
			}
			deps = append(deps, models.ActionDep{ActionID: idMap[ta.ID], DependsOn: target})
		}
	}

	if err := validateGraph(actions, deps); err != nil {
		return nil, err
	}

	return persistWorkflow(db, &wf, actions, deps, checkpoints)
}

// CreateCustom builds a workflow from caller-supplied action definitions.
// Positions are assigned sequentially from 1 and the workflow's estimated
// duration is the sum over all definitions. Definition dependencies reference
// other definitions by 1-based position.
func CreateCustom(db *gorm.DB, anomalyID, title, priority string, defs []ActionDef) (*CreateResult, error) {
	if anomalyID == "" {
		return nil, fmt.Errorf("workflow: anomaly id is required")
	}
	if title == "" {
		return nil, fmt.Errorf("workflow: title is required")
	}
	if priority == "" {
		priority = "medium"
	}

	wfID, err := GenerateID("wf")
	if err != nil {
		return nil, err
	}

	wf := models.MaintenanceWorkflow{
		ID:        wfID,
		AnomalyID: anomalyID,
		Title:     title,
		Status:    StatusPending,
		Priority:  priority,
	}

	actions := make([]models.MaintenanceAction, 0, len(defs))
	var checkpoints []models.MaintenanceCheckpoint
	for i, def := range defs {
		action, cps, err := buildAction(wfID, def, i+1)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *action)
		checkpoints = append(checkpoints, cps...)
		wf.EstimatedDuration += def.EstimatedDuration
	}

	var deps []models.ActionDep
	for i, def := range defs {
		for _, pos := range def.DependsOn {
			if pos < 1 || pos > len(defs) {
				return nil, fmt.Errorf("workflow: action %d depends on position %d which does not exist: %w",
					i+1, pos, ErrInvalidState)
			}
			if pos == i+1 {
				return nil, fmt.Errorf("workflow: action %d depends on itself: %w", i+1, ErrInvalidState)
			}
			deps = append(deps, models.ActionDep{
				ActionID:  actions[i].ID,
				DependsOn: actions[pos-1].ID,
			})
		}
	}

	if err := validateGraph(actions, deps); err != nil {
		return nil, err
	}

	return persistWorkflow(db, &wf, actions, deps, checkpoints)
}

// buildAction materializes an ActionDef at the given 1-based position.
func buildAction(workflowID string, def ActionDef, position int) (*models.MaintenanceAction, []models.MaintenanceCheckpoint, error) {
	if def.Title == "" {
		return nil, nil, fmt.Errorf("workflow: action title is required")
	}

	actionID, err := GenerateID("ac")
	if err != nil {
		return nil, nil, err
	}

	actionType := def.Type
	if actionType == "" {
		actionType = "execution"
	}
	priority := def.Priority
	if priority == "" {
		priority = "medium"
	}

	action := models.MaintenanceAction{
		ID:                 actionID,
		WorkflowID:         workflowID,
		Title:              def.Title,
		Description:        def.Description,
		Type:               actionType,
		Status:             StatusPending,
		Priority:           priority,
		Position:           position,
		EstimatedDuration:  def.EstimatedDuration,
		IsBlocking:         def.IsBlocking,
		ResourcesNeeded:    models.EncodeStrings(def.Resources),
		SkillsRequired:     models.EncodeStrings(def.Skills),
		SafetyRequirements: models.EncodeStrings(def.Safety),
		RequiresApproval:   def.RequiresApproval,
		DueAt:              def.DueAt,
	}

	var checkpoints []models.MaintenanceCheckpoint
	for j, cd := range def.Checkpoints {
		cpID, err := GenerateID("cp")
		if err != nil {
			return nil, nil, err
		}
		checkpoints = append(checkpoints, models.MaintenanceCheckpoint{
			ID:          cpID,
			ActionID:    actionID,
			Title:       cd.Title,
			Description: cd.Description,
			IsMandatory: cd.Mandatory,
			Position:    j + 1,
		})
	}
	return &action, checkpoints, nil
}

// persistWorkflow writes a new workflow atomically, replacing any existing
// workflow for the same anomaly.
func persistWorkflow(db *gorm.DB, wf *models.MaintenanceWorkflow, actions []models.MaintenanceAction, deps []models.ActionDep, checkpoints []models.MaintenanceCheckpoint) (*CreateResult, error) {
	result := &CreateResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		previous, err := GetByAnomaly(tx, wf.AnomalyID)
		if err != nil {
			return err
		}
		if previous != nil {
			if err := deleteTx(tx, previous.ID); err != nil {
				return err
			}
			result.Replaced = previous
		}

		if err := tx.Create(wf).Error; err != nil {
			return fmt.Errorf("workflow: create %s: %w", wf.ID, err)
		}
		for i := range actions {
			if err := tx.Create(&actions[i]).Error; err != nil {
				return fmt.Errorf("workflow: create action %s: %w", actions[i].ID, err)
			}
		}
		for i := range deps {
			if err := tx.Create(&deps[i]).Error; err != nil {
				return fmt.Errorf("workflow: create dependency %s -> %s: %w", deps[i].ActionID, deps[i].DependsOn, err)
			}
		}
		for i := range checkpoints {
			if err := tx.Create(&checkpoints[i]).Error; err != nil {
				return fmt.Errorf("workflow: create checkpoint %s: %w", checkpoints[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := Get(db, wf.ID)
	if err != nil {
		return nil, err
	}
	result.Workflow = created
	return result, nil
}

// validateGraph checks order and dependency invariants for a new action set:
// positions unique and monotonic from 1, dependency endpoints resolve within
// the set, and the dependency graph is acyclic.
func validateGraph(actions []models.MaintenanceAction, deps []models.ActionDep) error {
	positions := make(map[int]bool, len(actions))
	ids := make(map[string]bool, len(actions))
	for i, a := range actions {
		if positions[a.Position] {
			return fmt.Errorf("workflow: duplicate action order %d: %w", a.Position, ErrInvalidState)
		}
		if a.Position != i+1 {
			return fmt.Errorf("workflow: action order must be monotonic from 1, got %d at index %d: %w",
				a.Position, i, ErrInvalidState)
		}
		positions[a.Position] = true
		ids[a.ID] = true
	}

	adj := make(map[string][]string)
	for _, d := range deps {
		if !ids[d.ActionID] || !ids[d.DependsOn] {
			return fmt.Errorf("workflow: dependency %s -> %s references an unknown action: %w",
				d.ActionID, d.DependsOn, ErrInvalidState)
		}
		adj[d.ActionID] = append(adj[d.ActionID], d.DependsOn)
	}

	// DFS cycle check over the dependency edges.
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(actions))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return false
		case done:
			return true
		}
		state[id] = visiting
		for _, next := range adj[id] {
			if !visit(next) {
				return false
			}
		}
		state[id] = done
		return true
	}
	for id := range ids {
		if !visit(id) {
			return fmt.Errorf("workflow: dependency cycle detected: %w", ErrInvalidState)
		}
	}
	return nil
}

// highestActionPriority derives a workflow priority from its template actions.
func highestActionPriority(actions []models.TemplateAction) string {
	rank := map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}
	best := "medium"
	for _, a := range actions {
		if rank[a.Priority] > rank[best] {
			best = a.Priority
		}
	}
	return best
}

// Get retrieves a workflow by ID with actions, dependencies, notes, and
// checkpoints loaded.
func Get(db *gorm.DB, id string) (*models.MaintenanceWorkflow, error) {
	var wf models.MaintenanceWorkflow
	err := preloadWorkflow(db).Where("id = ?", id).First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: get %s: %w", id, err)
	}
	return &wf, nil
}

// GetByAnomaly retrieves the workflow for an anomaly. An anomaly with no
// workflow yields (nil, nil), never an error.
func GetByAnomaly(db *gorm.DB, anomalyID string) (*models.MaintenanceWorkflow, error) {
	var wf models.MaintenanceWorkflow
	err := preloadWorkflow(db).Where("anomaly_id = ?", anomalyID).First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: get by anomaly %s: %w", anomalyID, err)
	}
	return &wf, nil
}

// List returns workflows matching the given filters, newest first.
func List(db *gorm.DB, filters Filters) ([]models.MaintenanceWorkflow, error) {
	q := db.Model(&models.MaintenanceWorkflow{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}
	if filters.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filters.AssignedTo)
	}
	if filters.TemplateID != "" {
		q = q.Where("template_id = ?", filters.TemplateID)
	}

	var workflows []models.MaintenanceWorkflow
	if err := q.Order("created_at DESC").Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("workflow: list: %w", err)
	}
	return workflows, nil
}

// Update merges fields into a workflow. Status changes are validated against
// WorkflowTransitions; entering in_progress stamps started_at and entering
// completed stamps completed_at.
func Update(db *gorm.DB, id string, updates map[string]interface{}) (*models.MaintenanceWorkflow, error) {
	var wf models.MaintenanceWorkflow
	if err := db.Where("id = ?", id).First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow: %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("workflow: get %s for update: %w", id, err)
	}

	if newStatus, ok := updates["status"].(string); ok && newStatus != wf.Status {
		if !CanTransitionWorkflow(wf.Status, newStatus) {
			return nil, fmt.Errorf("workflow: status transition %q -> %q not allowed: %w",
				wf.Status, newStatus, ErrInvalidState)
		}
		now := time.Now()
		if newStatus == StatusInProgress && wf.StartedAt == nil {
			updates["started_at"] = now
		}
		if newStatus == StatusCompleted {
			updates["completed_at"] = now
		}
	}

	if err := db.Model(&models.MaintenanceWorkflow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("workflow: update %s: %w", id, err)
	}
	return Get(db, id)
}

// Delete removes a workflow and everything it owns.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MaintenanceWorkflow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("workflow: check %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("workflow: %s: %w", id, ErrNotFound)
		}
		return deleteTx(tx, id)
	})
}

// deleteTx removes a workflow and its owned rows inside a transaction.
func deleteTx(tx *gorm.DB, id string) error {
	var actionIDs []string
	if err := tx.Model(&models.MaintenanceAction{}).Where("workflow_id = ?", id).Pluck("id", &actionIDs).Error; err != nil {
		return fmt.Errorf("workflow: load actions of %s: %w", id, err)
	}

	if len(actionIDs) > 0 {
		if err := tx.Where("action_id IN ? OR depends_on IN ?", actionIDs, actionIDs).Delete(&models.ActionDep{}).Error; err != nil {
			return fmt.Errorf("workflow: delete dependencies of %s: %w", id, err)
		}
		if err := tx.Where("action_id IN ?", actionIDs).Delete(&models.ActionNote{}).Error; err != nil {
			return fmt.Errorf("workflow: delete notes of %s: %w", id, err)
		}
		if err := tx.Where("action_id IN ?", actionIDs).Delete(&models.MaintenanceCheckpoint{}).Error; err != nil {
			return fmt.Errorf("workflow: delete checkpoints of %s: %w", id, err)
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&models.MaintenanceAction{}).Error; err != nil {
			return fmt.Errorf("workflow: delete actions of %s: %w", id, err)
		}
	}

	if err := tx.Where("id = ?", id).Delete(&models.MaintenanceWorkflow{}).Error; err != nil {
		return fmt.Errorf("workflow: delete %s: %w", id, err)
	}
	return nil
}

// preloadWorkflow attaches ordered preloads for a full workflow aggregate.
func preloadWorkflow(db *gorm.DB) *gorm.DB {
	return db.Preload("Actions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Preload("Actions.Deps").Preload("Actions.Notes", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Preload("Actions.Checkpoints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}
