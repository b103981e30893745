package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries notification emails at a higher weight.
	QueueMail = "mail"
	// TaskTypeSendEmail is the task type for notification emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeBillingSweep promotes completed projects into the billing queue.
	TaskTypeBillingSweep = "billing:sweep"
)

// SendEmailPayload describes one notification email. The recipient's address
// is resolved by the worker so the request path never blocks on a lookup.
type SendEmailPayload struct {
	RecipientID int64  `json:"recipientId"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewBillingSweepTask constructs the periodic billing sweep task.
func NewBillingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBillingSweep, nil)
}
