package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewalReminderPayloadRoundTrip(t *testing.T) {
	in := RenewalReminderJobPayload{
		UserID:           12,
		SubscriptionUUID: "9f1c2d3e",
		DueDate:          "2026-09-01",
	}

	out, err := RenewalReminderJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestBillingAdvancePayloadRoundTrip(t *testing.T) {
	in := BillingAdvanceJobPayload{UserID: 4, SubscriptionUUID: "abc"}

	out, err := BillingAdvanceJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestExportPayloadRoundTrip(t *testing.T) {
	in := ExportJobPayload{UserID: 99}

	out, err := ExportJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		ID:         "j1",
		Type:       JobTypeExport,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestDedupeKeyFormats(t *testing.T) {
	assert.Equal(t, "reminder:sent:abc:2026-09-01", reminderSentKey("abc", "2026-09-01"))
	assert.Equal(t, "export:last:42", lastExportKey(42))
}

func TestJobIsNotRetryableAfterMaxRetries(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsFailed("1")
	job.MarkAsFailed("2")
	assert.False(t, job.IsRetryable())
}
