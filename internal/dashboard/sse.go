package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// workflowEvent holds data for a workflow_update SSE event.
type workflowEvent struct {
	ID        string `json:"id"`
	AnomalyID string `json:"anomaly_id"`
	Status    string `json:"status"`
	Title     string `json:"title"`
}

// handleSSE creates an SSE handler that polls for workflow changes.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// If no DB, just send connected and return — tests use nil DB.
		if db == nil {
			return
		}

		// Only report changes after the stream started.
		lastSeen := time.Now()

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var changed []models.MaintenanceWorkflow
				db.Where("updated_at > ?", lastSeen).
					Order("updated_at ASC").
					Find(&changed)

				if len(changed) == 0 {
					continue
				}
				lastSeen = changed[len(changed)-1].UpdatedAt

				for _, wf := range changed {
					writeSSE(c.Writer, "workflow_update", workflowEvent{
						ID:        wf.ID,
						AnomalyID: wf.AnomalyID,
						Status:    wf.Status,
						Title:     wf.Title,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
