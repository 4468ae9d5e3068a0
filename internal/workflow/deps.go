package workflow

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// AddDep records that actionID cannot start until dependsOn is completed.
// Both actions must exist in the same workflow; self-dependencies and cycles
// are rejected with ErrInvalidState.
func AddDep(db *gorm.DB, actionID, dependsOn string) error {
	if actionID == dependsOn {
		return fmt.Errorf("workflow: action %s cannot depend on itself: %w", actionID, ErrInvalidState)
	}

	action, err := getAction(db, actionID)
	if err != nil {
		return err
	}
	blocker, err := getAction(db, dependsOn)
	if err != nil {
		return err
	}
	if action.WorkflowID != blocker.WorkflowID {
		return fmt.Errorf("workflow: actions %s and %s belong to different workflows: %w",
			actionID, dependsOn, ErrInvalidState)
	}

	if hasCycle(db, actionID, dependsOn) {
		return fmt.Errorf("workflow: dependency %s -> %s would create a cycle: %w",
			actionID, dependsOn, ErrInvalidState)
	}

	dep := models.ActionDep{ActionID: actionID, DependsOn: dependsOn}
	if err := db.Create(&dep).Error; err != nil {
		return fmt.Errorf("workflow: add dependency %s -> %s: %w", actionID, dependsOn, err)
	}
	return touchWorkflow(db, action.WorkflowID)
}

// RemoveDep deletes a dependency edge.
func RemoveDep(db *gorm.DB, actionID, dependsOn string) error {
	result := db.Where("action_id = ? AND depends_on = ?", actionID, dependsOn).Delete(&models.ActionDep{})
	if result.Error != nil {
		return fmt.Errorf("workflow: remove dependency %s -> %s: %w", actionID, dependsOn, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workflow: dependency %s -> %s: %w", actionID, dependsOn, ErrNotFound)
	}
	return nil
}

// ListDeps returns the blockers of an action (what it waits on) and its
// dependents (what waits on it). Dependents are the derived inverse view of
// the stored edges, never a second collection.
func ListDeps(db *gorm.DB, actionID string) (blockers []models.ActionDep, dependents []models.ActionDep, err error) {
	if err := db.Where("action_id = ?", actionID).Find(&blockers).Error; err != nil {
		return nil, nil, fmt.Errorf("workflow: list blockers of %s: %w", actionID, err)
	}
	if err := db.Where("depends_on = ?", actionID).Find(&dependents).Error; err != nil {
		return nil, nil, fmt.Errorf("workflow: list dependents of %s: %w", actionID, err)
	}
	return blockers, dependents, nil
}

// ReadyActions returns a workflow's actions that can start now: pending and
// with every blocker completed.
func ReadyActions(db *gorm.DB, workflowID string) ([]models.MaintenanceAction, error) {
	q := db.Where("workflow_id = ? AND status = ?", workflowID, StatusPending).
		Where("id NOT IN (?)",
			db.Table("action_deps").
				Select("action_deps.action_id").
				Joins("JOIN maintenance_actions blocker ON action_deps.depends_on = blocker.id").
				Where("blocker.status != ?", StatusCompleted),
		)

	var actions []models.MaintenanceAction
	if err := q.Order("position ASC").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("workflow: ready actions of %s: %w", workflowID, err)
	}
	return actions, nil
}

// CanActionStart reports whether an action may move to in_progress: it must
// be pending and every dependency must resolve to a completed action in the
// provided set. Pure; used to gate UI affordances before Start.
func CanActionStart(action models.MaintenanceAction, all []models.MaintenanceAction) bool {
	if action.Status != StatusPending {
		return false
	}
	byID := make(map[string]models.MaintenanceAction, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	for _, dep := range action.Deps {
		blocker, ok := byID[dep.DependsOn]
		if !ok || blocker.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// hasCycle checks whether adding actionID -> dependsOn would create a cycle
// by walking the existing edges from dependsOn looking for actionID.
func hasCycle(db *gorm.DB, actionID, dependsOn string) bool {
	visited := make(map[string]bool)
	return reachable(db, dependsOn, actionID, visited)
}

// reachable performs a DFS from current along depends_on edges to determine
// whether target is reachable.
func reachable(db *gorm.DB, current, target string, visited map[string]bool) bool {
	if current == target {
		return true
	}
	if visited[current] {
		return false
	}
	visited[current] = true

	var deps []models.ActionDep
	if err := db.Where("action_id = ?", current).Find(&deps).Error; err != nil {
		return false
	}
	for _, d := range deps {
		if reachable(db, d.DependsOn, target, visited) {
			return true
		}
	}
	return false
}
