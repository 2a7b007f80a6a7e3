package tracking

import "time"

// Thresholds beyond which the tracker reports itself degraded.
const (
	healthyFailureLimit = 3
	healthyPendingLimit = 10
)

// HealthStatus is a read-only diagnostic snapshot combining the saver's
// counters with the tracker's own state. Computed on demand, never stored.
type HealthStatus struct {
	StorageAvailable    bool       `json:"storage_available"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	PendingCount        int        `json:"pending_count"`
	LastSuccessfulSave  *time.Time `json:"last_successful_save,omitempty"`
	IsTracking          bool       `json:"is_tracking"`
	SleepStartTime      *time.Time `json:"sleep_start_time,omitempty"`
}

// IsHealthy reports whether the pipeline is operating normally.
func (h HealthStatus) IsHealthy() bool {
	return h.StorageAvailable &&
		h.ConsecutiveFailures < healthyFailureLimit &&
		h.PendingCount < healthyPendingLimit
}
