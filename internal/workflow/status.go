package workflow

import "fmt"

// Action statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusBlocked    = "blocked"
	StatusCancelled  = "cancelled"
)

// ValidTransitions maps each action status to its valid next statuses.
// completed and cancelled are terminal.
// pending -> completed is admitted so an action can be closed out with its
// estimate when nobody recorded a start.
var ValidTransitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusBlocked, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled},
}

// WorkflowTransitions maps each workflow status to its valid next statuses.
var WorkflowTransitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether an action status change is legal.
func CanTransition(from, to string) bool {
	return contains(ValidTransitions[from], to)
}

// CanTransitionWorkflow reports whether a workflow status change is legal.
func CanTransitionWorkflow(from, to string) bool {
	return contains(WorkflowTransitions[from], to)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// StatusConfig holds display attributes for an action or workflow status.
type StatusConfig struct {
	Label string
	Color string
	Badge string
}

var statusConfigs = map[string]StatusConfig{
	StatusPending:    {Label: "Pending", Color: "#9e9e9e", Badge: "badge-pending"},
	StatusInProgress: {Label: "In progress", Color: "#2196f3", Badge: "badge-progress"},
	StatusCompleted:  {Label: "Completed", Color: "#36a64f", Badge: "badge-done"},
	StatusBlocked:    {Label: "Blocked", Color: "#ff9800", Badge: "badge-blocked"},
	StatusCancelled:  {Label: "Cancelled", Color: "#757575", Badge: "badge-cancelled"},
}

// GetStatusConfig returns display attributes for a status. Unknown statuses
// fall back to a neutral config carrying the raw value as label.
func GetStatusConfig(status string) StatusConfig {
	if cfg, ok := statusConfigs[status]; ok {
		return cfg
	}
	return StatusConfig{Label: status, Color: "#9e9e9e", Badge: "badge-pending"}
}

// TypeConfig holds display attributes for an action type.
type TypeConfig struct {
	Label string
	Icon  string
}

var typeConfigs = map[string]TypeConfig{
	"diagnosis":     {Label: "Diagnosis", Icon: "search"},
	"preparation":   {Label: "Preparation", Icon: "clipboard"},
	"execution":     {Label: "Execution", Icon: "wrench"},
	"verification":  {Label: "Verification", Icon: "check-circle"},
	"documentation": {Label: "Documentation", Icon: "file-text"},
	"preventive":    {Label: "Preventive", Icon: "shield"},
}

// GetTypeConfig returns display attributes for an action type.
func GetTypeConfig(actionType string) TypeConfig {
	if cfg, ok := typeConfigs[actionType]; ok {
		return cfg
	}
	return TypeConfig{Label: actionType, Icon: "circle"}
}

// FormatDuration renders a duration in minutes as a short human string.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if h >= 24 {
		days := h / 24
		h = h % 24
		return fmt.Sprintf("%dd %dh", days, h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
