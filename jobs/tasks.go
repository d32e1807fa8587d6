package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStaleGrantScan reports role grants the catalog no longer backs.
	TaskStaleGrantScan = "rbac:stale_grants"
)

// StaleGrantScanPayload selects the application to scan; empty means all.
type StaleGrantScanPayload struct {
	AppID string `json:"app_id,omitempty"`
}

// NewStaleGrantScanTask constructs an Asynq task for the stale grant scan.
func NewStaleGrantScanTask(appID string) (*asynq.Task, error) {
	body, err := json.Marshal(StaleGrantScanPayload{AppID: appID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleGrantScan, body, asynq.Queue(QueueDefault)), nil
}
