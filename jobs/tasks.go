package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVoucherIntegrity is the task type for the voucher integrity scan.
	TaskVoucherIntegrity = "voucher:integrity_scan"
)

// VoucherIntegrityPayload narrows the scan to one fiscal year when set.
type VoucherIntegrityPayload struct {
	FiscalYearID int64 `json:"fiscal_year_id,omitempty"`
}

// NewVoucherIntegrityTask constructs an Asynq task for the integrity scan.
func NewVoucherIntegrityTask(payload VoucherIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVoucherIntegrity, data), nil
}
