package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeRenewalReminder JobType = "renewal_reminder"
	JobTypeBillingAdvance  JobType = "billing_advance"
	JobTypeExport          JobType = "export"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// RenewalReminderJobPayload contains the payload for reminder mail jobs
type RenewalReminderJobPayload struct {
	UserID           uint   `json:"user_id"`
	SubscriptionUUID string `json:"subscription_uuid"`
	DueDate          string `json:"due_date"` // YYYY-MM-DD
}

// ToMap converts the payload to a map for storage
func (p RenewalReminderJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":           p.UserID,
		"subscription_uuid": p.SubscriptionUUID,
		"due_date":          p.DueDate,
	}
}

// FromMap creates a payload from a map
func RenewalReminderJobPayloadFromMap(data map[string]interface{}) (*RenewalReminderJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload RenewalReminderJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// BillingAdvanceJobPayload contains the payload for billing roll-forward jobs
type BillingAdvanceJobPayload struct {
	UserID           uint   `json:"user_id"`
	SubscriptionUUID string `json:"subscription_uuid"`
}

// ToMap converts the payload to a map for storage
func (p BillingAdvanceJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":           p.UserID,
		"subscription_uuid": p.SubscriptionUUID,
	}
}

// FromMap creates a payload from a map
func BillingAdvanceJobPayloadFromMap(data map[string]interface{}) (*BillingAdvanceJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload BillingAdvanceJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ExportJobPayload contains the payload for subscription export jobs
type ExportJobPayload struct {
	UserID uint `json:"user_id"`
}

// ToMap converts the payload to a map for storage
func (p ExportJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id": p.UserID,
	}
}

// FromMap creates a payload from a map
func ExportJobPayloadFromMap(data map[string]interface{}) (*ExportJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ExportJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
