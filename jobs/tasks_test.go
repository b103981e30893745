package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendEmailTask(t *testing.T) {
	task, err := NewSendEmailTask(SendEmailPayload{
		RecipientID: 7,
		Subject:     "P&L Approved",
		Body:        "Your P&L was approved.",
	})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())

	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(7), payload.RecipientID)
	assert.Equal(t, "P&L Approved", payload.Subject)
}

func TestNewBillingSweepTask(t *testing.T) {
	task := NewBillingSweepTask()
	assert.Equal(t, TaskTypeBillingSweep, task.Type())
	assert.Empty(t, task.Payload())
}
