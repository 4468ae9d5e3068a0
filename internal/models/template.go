package models

import "time"

// MaintenanceTemplate is an immutable blueprint for a repeatable maintenance
// procedure. Templates are authored in the catalog file and seeded into the
// store; workflow execution never mutates them.
type MaintenanceTemplate struct {
	ID             string `gorm:"primaryKey;size:32"`
	Name           string `gorm:"not null"`
	Description    string `gorm:"type:text"`
	Category       string `gorm:"size:32;index"` // mechanical, electrical, hydraulic, instrumentation
	EquipmentTypes string `gorm:"type:json"`     // JSON list of equipment-type tags
	EstimatedTotal int    // total estimated duration in minutes
	Active         bool   `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Actions []TemplateAction `gorm:"foreignKey:TemplateID"`
}

// TemplateAction is one ordered step in a template.
type TemplateAction struct {
	ID                string `gorm:"primaryKey;size:32"`
	TemplateID        string `gorm:"size:32;index"`
	Title             string `gorm:"not null"`
	Description       string `gorm:"type:text"`
	Type              string `gorm:"size:16"` // diagnosis, preparation, execution, verification, documentation, preventive
	Priority          string `gorm:"size:16;default:medium"`
	EstimatedDuration int    // minutes
	Position          int    // 1-based order within the template
	DependsOn         string `gorm:"type:json"` // JSON list of template-action IDs within the same template
	Resources         string `gorm:"type:json"`
	Skills            string `gorm:"type:json"`
	Safety            string `gorm:"type:json"`
	RequiresApproval  bool

	Checkpoints []TemplateCheckpoint `gorm:"foreignKey:ActionID"`
}

// TemplateCheckpoint is a sub-verification inside a template action.
type TemplateCheckpoint struct {
	ID          string `gorm:"primaryKey;size:32"`
	ActionID    string `gorm:"size:32;index"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	IsMandatory bool
	Position    int
}
