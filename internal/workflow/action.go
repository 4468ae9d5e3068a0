package workflow

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// StatusUpdate holds the optional side inputs of an action status change.
type StatusUpdate struct {
	AssignedTo string // overwrites the assignee when non-empty
	Note       string // appended to the note log when non-empty
}

// UpdateActionStatus moves an action to a new status. The transition is
// validated against ValidTransitions; illegal moves fail with
// ErrInvalidState. Entering in_progress stamps started_at once, entering
// completed stamps completed_at. The owning workflow's updated_at is
// refreshed on every mutation.
func UpdateActionStatus(db *gorm.DB, actionID, status string, upd StatusUpdate) (*models.MaintenanceAction, error) {
	var result *models.MaintenanceAction
	err := db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}

		if status != action.Status && !CanTransition(action.Status, status) {
			return fmt.Errorf("workflow: action %s: status transition %q -> %q not allowed (valid: %v): %w",
				actionID, action.Status, status, ValidTransitions[action.Status], ErrInvalidState)
		}

		now := time.Now()
		updates := map[string]interface{}{"status": status}
		if status == StatusInProgress && action.StartedAt == nil {
			updates["started_at"] = now
		}
		if status == StatusCompleted && action.CompletedAt == nil {
			updates["completed_at"] = now
		}
		if upd.AssignedTo != "" {
			updates["assigned_to"] = upd.AssignedTo
		}

		if err := tx.Model(&models.MaintenanceAction{}).Where("id = ?", actionID).Updates(updates).Error; err != nil {
			return fmt.Errorf("workflow: update action %s: %w", actionID, err)
		}

		if upd.Note != "" {
			if err := appendNote(tx, actionID, upd.Note); err != nil {
				return err
			}
		}

		if err := touchWorkflow(tx, action.WorkflowID); err != nil {
			return err
		}

		result, err = getAction(tx, actionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Start moves an action to in_progress, optionally assigning it.
func Start(db *gorm.DB, actionID, assignedTo string) (*models.MaintenanceAction, error) {
	return UpdateActionStatus(db, actionID, StatusInProgress, StatusUpdate{AssignedTo: assignedTo})
}

// Complete finishes an action. The actual duration is the whole-minute span
// since started_at; an action completed without ever being started falls
// back to its estimate.
func Complete(db *gorm.DB, actionID, note string) (*models.MaintenanceAction, error) {
	var result *models.MaintenanceAction
	err := db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}

		actual := action.EstimatedDuration
		if action.StartedAt != nil {
			actual = int(math.Round(time.Since(*action.StartedAt).Minutes()))
		}

		result, err = UpdateActionStatus(tx, actionID, StatusCompleted, StatusUpdate{Note: note})
		if err != nil {
			return err
		}

		if err := tx.Model(&models.MaintenanceAction{}).Where("id = ?", actionID).
			Update("actual_duration", actual).Error; err != nil {
			return fmt.Errorf("workflow: record duration for action %s: %w", actionID, err)
		}
		result.ActualDuration = &actual
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Pause blocks an action, recording the reason in the note log.
func Pause(db *gorm.DB, actionID, reason string) (*models.MaintenanceAction, error) {
	return UpdateActionStatus(db, actionID, StatusBlocked, StatusUpdate{Note: reason})
}

// Resume moves a blocked action back to in_progress.
func Resume(db *gorm.DB, actionID string) (*models.MaintenanceAction, error) {
	return UpdateActionStatus(db, actionID, StatusInProgress, StatusUpdate{})
}

// AddAction appends a new pending action to a workflow at order count+1.
func AddAction(db *gorm.DB, workflowID string, def ActionDef) (*models.MaintenanceAction, error) {
	var result *models.MaintenanceAction
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MaintenanceWorkflow{}).Where("id = ?", workflowID).Count(&count).Error; err != nil {
			return fmt.Errorf("workflow: check %s: %w", workflowID, err)
		}
		if count == 0 {
			return fmt.Errorf("workflow: %s: %w", workflowID, ErrNotFound)
		}

		var actionCount int64
		if err := tx.Model(&models.MaintenanceAction{}).Where("workflow_id = ?", workflowID).Count(&actionCount).Error; err != nil {
			return fmt.Errorf("workflow: count actions of %s: %w", workflowID, err)
		}

		action, checkpoints, err := buildAction(workflowID, def, int(actionCount)+1)
		if err != nil {
			return err
		}
		if len(def.DependsOn) > 0 {
			return fmt.Errorf("workflow: dependencies of appended actions are added via AddDep: %w", ErrInvalidState)
		}

		if err := tx.Create(action).Error; err != nil {
			return fmt.Errorf("workflow: add action to %s: %w", workflowID, err)
		}
		for i := range checkpoints {
			if err := tx.Create(&checkpoints[i]).Error; err != nil {
				return fmt.Errorf("workflow: create checkpoint %s: %w", checkpoints[i].ID, err)
			}
		}

		if err := touchWorkflow(tx, workflowID); err != nil {
			return err
		}

		result, err = getAction(tx, action.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetProgress records reported progress on an action. This is the operator's
// own estimate and is deliberately independent of checkpoint completion.
func SetProgress(db *gorm.DB, actionID string, percentage int) (*models.MaintenanceAction, error) {
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("workflow: progress %d out of range 0-100: %w", percentage, ErrInvalidState)
	}

	var result *models.MaintenanceAction
	err := db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.MaintenanceAction{}).Where("id = ?", actionID).
			Update("progress_percentage", percentage).Error; err != nil {
			return fmt.Errorf("workflow: set progress on action %s: %w", actionID, err)
		}
		if err := touchWorkflow(tx, action.WorkflowID); err != nil {
			return err
		}
		result, err = getAction(tx, actionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddNote appends an entry to an action's append-only note log.
func AddNote(db *gorm.DB, actionID, content string) error {
	if content == "" {
		return fmt.Errorf("workflow: note content is required")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}
		if err := appendNote(tx, actionID, content); err != nil {
			return err
		}
		return touchWorkflow(tx, action.WorkflowID)
	})
}

// getAction loads an action with notes and checkpoints.
func getAction(db *gorm.DB, actionID string) (*models.MaintenanceAction, error) {
	var action models.MaintenanceAction
	err := db.Preload("Deps").Preload("Notes", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Preload("Checkpoints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Where("id = ?", actionID).First(&action).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow: action %s: %w", actionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: get action %s: %w", actionID, err)
	}
	return &action, nil
}

// appendNote writes one note row. Notes are never edited or removed.
func appendNote(tx *gorm.DB, actionID, content string) error {
	note := models.ActionNote{ActionID: actionID, Content: content}
	if err := tx.Create(&note).Error; err != nil {
		return fmt.Errorf("workflow: append note to action %s: %w", actionID, err)
	}
	return nil
}

// touchWorkflow refreshes a workflow's updated_at.
func touchWorkflow(tx *gorm.DB, workflowID string) error {
	if err := tx.Model(&models.MaintenanceWorkflow{}).Where("id = ?", workflowID).
		Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("workflow: touch %s: %w", workflowID, err)
	}
	return nil
}
