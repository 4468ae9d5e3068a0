package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// UpdateCheckpoint toggles a checkpoint's completion. Completing stamps
// completed_at; un-completing clears it. Whether all mandatory checkpoints
// are done before the parent action completes stays a caller concern — use
// MandatoryOpen to check.
func UpdateCheckpoint(db *gorm.DB, actionID, checkpointID string, completed bool) (*models.MaintenanceCheckpoint, error) {
	var result *models.MaintenanceCheckpoint
	err := db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}

		var cp models.MaintenanceCheckpoint
		err = tx.Where("id = ? AND action_id = ?", checkpointID, actionID).First(&cp).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("workflow: checkpoint %s on action %s: %w", checkpointID, actionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("workflow: get checkpoint %s: %w", checkpointID, err)
		}

		updates := map[string]interface{}{"completed": completed}
		if completed {
			updates["completed_at"] = time.Now()
		} else {
			updates["completed_at"] = nil
		}
		if err := tx.Model(&models.MaintenanceCheckpoint{}).Where("id = ?", checkpointID).Updates(updates).Error; err != nil {
			return fmt.Errorf("workflow: update checkpoint %s: %w", checkpointID, err)
		}

		if err := touchWorkflow(tx, action.WorkflowID); err != nil {
			return err
		}

		err = tx.Where("id = ?", checkpointID).First(&cp).Error
		if err != nil {
			return fmt.Errorf("workflow: reload checkpoint %s: %w", checkpointID, err)
		}
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddCheckpoint appends an uncompleted checkpoint to an action.
func AddCheckpoint(db *gorm.DB, actionID string, def CheckpointDef) (*models.MaintenanceCheckpoint, error) {
	if def.Title == "" {
		return nil, fmt.Errorf("workflow: checkpoint title is required")
	}

	var result *models.MaintenanceCheckpoint
	err := db.Transaction(func(tx *gorm.DB) error {
		action, err := getAction(tx, actionID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.MaintenanceCheckpoint{}).Where("action_id = ?", actionID).Count(&count).Error; err != nil {
			return fmt.Errorf("workflow: count checkpoints of %s: %w", actionID, err)
		}

		cpID, err := GenerateID("cp")
		if err != nil {
			return err
		}
		cp := models.MaintenanceCheckpoint{
			ID:          cpID,
			ActionID:    actionID,
			Title:       def.Title,
			Description: def.Description,
			IsMandatory: def.Mandatory,
			Completed:   false,
			Position:    int(count) + 1,
		}
		if err := tx.Create(&cp).Error; err != nil {
			return fmt.Errorf("workflow: add checkpoint to %s: %w", actionID, err)
		}

		if err := touchWorkflow(tx, action.WorkflowID); err != nil {
			return err
		}
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MandatoryOpen returns the mandatory checkpoints of an action that are not
// yet completed.
func MandatoryOpen(action models.MaintenanceAction) []models.MaintenanceCheckpoint {
	var open []models.MaintenanceCheckpoint
	for _, cp := range action.Checkpoints {
		if cp.IsMandatory && !cp.Completed {
			open = append(open, cp)
		}
	}
	return open
}
