package models

import "time"

// MaintenanceWorkflow is one maintenance effort against one anomaly. The
// unique index on AnomalyID keeps at most one live workflow per anomaly.
type MaintenanceWorkflow struct {
	ID                string  `gorm:"primaryKey;size:32"`
	AnomalyID         string  `gorm:"size:64;uniqueIndex;not null"`
	Title             string  `gorm:"not null"`
	Status            string  `gorm:"size:16;default:pending;index"` // pending, in_progress, completed
	Priority          string  `gorm:"size:16;default:medium"`
	TemplateID        *string `gorm:"size:32"` // provenance link, nil for custom workflows
	AssignedTo        string  `gorm:"size:64"`
	EstimatedDuration int     // minutes
	ActualDuration    *int    // minutes
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Actions []MaintenanceAction `gorm:"foreignKey:WorkflowID"`
}

// MaintenanceAction is one unit of work inside a workflow.
type MaintenanceAction struct {
	ID                 string `gorm:"primaryKey;size:32"`
	WorkflowID         string `gorm:"size:32;index"`
	Title              string `gorm:"not null"`
	Description        string `gorm:"type:text"`
	Type               string `gorm:"size:16;default:execution"`
	Status             string `gorm:"size:16;default:pending;index"` // pending, in_progress, completed, blocked, cancelled
	Priority           string `gorm:"size:16;default:medium"`
	Position           int    // 1-based execution order within the workflow
	EstimatedDuration  int    // minutes
	ActualDuration     *int   // minutes, recorded on completion
	AssignedTo         string `gorm:"size:64"`
	IsBlocking         bool   // dependents must wait for this action
	ResourcesNeeded    string `gorm:"type:json"`
	ResourcesUsed      string `gorm:"type:json"`
	SkillsRequired     string `gorm:"type:json"`
	SafetyRequirements string `gorm:"type:json"`
	RequiresApproval   bool
	ProgressPercentage int // reported progress 0-100, independent of checkpoint state
	DueAt              *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Deps        []ActionDep             `gorm:"foreignKey:ActionID"`
	Notes       []ActionNote            `gorm:"foreignKey:ActionID"`
	Checkpoints []MaintenanceCheckpoint `gorm:"foreignKey:ActionID"`
}

// ActionDep records that ActionID cannot start until DependsOn is completed.
// The inverse view (dependents) is derived by querying depends_on, never stored.
type ActionDep struct {
	ActionID  string `gorm:"primaryKey;size:32"`
	DependsOn string `gorm:"primaryKey;size:32"`

	Action  MaintenanceAction `gorm:"foreignKey:ActionID"`
	Blocker MaintenanceAction `gorm:"foreignKey:DependsOn"`
}

// ActionNote is one entry in an action's append-only note log.
type ActionNote struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ActionID  string `gorm:"size:32;index"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

// MaintenanceCheckpoint is a sub-verification inside a workflow action.
type MaintenanceCheckpoint struct {
	ID          string `gorm:"primaryKey;size:32"`
	ActionID    string `gorm:"size:32;index"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	IsMandatory bool
	Completed   bool
	CompletedAt *time.Time
	Position    int
}
