package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/subfoxapp/SubFox/app/models"
	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/cache"
	"github.com/subfoxapp/SubFox/internal/pkg/database"
	"github.com/subfoxapp/SubFox/internal/pkg/mail"
	"github.com/subfoxapp/SubFox/internal/pkg/s3export"
	"github.com/subfoxapp/SubFox/internal/pkg/utils"
)

// CacheInvalidator marks cached query entries stale after a background job
// changed subscription data. Wired by the router at startup; jobs tolerate it
// being absent.
type CacheInvalidator func(ownerID uint, subscriptionUUID string)

var cacheInvalidator CacheInvalidator

// SetCacheInvalidator registers the function jobs call after writes.
func SetCacheInvalidator(fn CacheInvalidator) {
	cacheInvalidator = fn
}

func invalidateCaches(ownerID uint, subscriptionUUID string) {
	if cacheInvalidator != nil {
		cacheInvalidator(ownerID, subscriptionUUID)
	}
}

// reminderSentKey dedupes reminder mails per subscription and due date.
func reminderSentKey(subscriptionUUID, dueDate string) string {
	return fmt.Sprintf("reminder:sent:%s:%s", subscriptionUUID, dueDate)
}

// lastExportKey remembers the user's previous export object so a new export
// can replace it.
func lastExportKey(userID uint) string {
	return fmt.Sprintf("export:last:%d", userID)
}

// processRenewalReminderJob sends the upcoming-charge mail for one subscription
func (q *Queue) processRenewalReminderJob(ctx context.Context, job *Job) error {
	payload, err := RenewalReminderJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid renewal reminder payload: %w", err)
	}

	// Already sent for this due date
	if _, err := cache.Get(reminderSentKey(payload.SubscriptionUUID, payload.DueDate)); err == nil {
		log.Debugf("[JobQueue] Reminder for %s (%s) already sent, skipping", payload.SubscriptionUUID, payload.DueDate)
		return nil
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user settings: %w", err)
	}
	if !settings.RemindersEnabled {
		log.Debugf("[JobQueue] Reminders disabled for user %d, skipping", payload.UserID)
		return nil
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", payload.UserID, err)
	}

	subRepo := repository.GetGlobalFactory().GetSubscriptionRepository()
	sub, err := subRepo.GetByID(ctx, payload.SubscriptionUUID)
	if err != nil {
		return fmt.Errorf("failed to load subscription %s: %w", payload.SubscriptionUUID, err)
	}
	if sub == nil {
		// Deleted between scan and processing; nothing to remind about
		log.Debugf("[JobQueue] Subscription %s gone, skipping reminder", payload.SubscriptionUUID)
		return nil
	}

	amount := utils.FormatCurrency(sub.Price, sub.Currency)
	body := mail.RenewalReminderBody(user.Name, sub.Name, amount, payload.DueDate)
	subject := fmt.Sprintf("%s renews on %s", sub.Name, payload.DueDate)

	if err := mail.SendMail(user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send reminder mail: %w", err)
	}

	// Keep the dedupe marker one full cycle so rescans don't resend
	ttl := models.CycleDuration(sub.BillingCycle)
	if err := cache.Set(reminderSentKey(payload.SubscriptionUUID, payload.DueDate), "1", ttl); err != nil {
		log.Errorf("[JobQueue] Failed to mark reminder sent for %s: %v", payload.SubscriptionUUID, err)
	}

	return nil
}

// processBillingAdvanceJob records the charge that just happened and rolls the
// next billing date forward
func (q *Queue) processBillingAdvanceJob(ctx context.Context, job *Job) error {
	payload, err := BillingAdvanceJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid billing advance payload: %w", err)
	}

	subRepo := repository.GetGlobalFactory().GetSubscriptionRepository()
	sub, err := subRepo.GetByID(ctx, payload.SubscriptionUUID)
	if err != nil {
		return fmt.Errorf("failed to load subscription %s: %w", payload.SubscriptionUUID, err)
	}
	if sub == nil {
		log.Debugf("[JobQueue] Subscription %s gone, skipping billing advance", payload.SubscriptionUUID)
		return nil
	}

	now := time.Now()
	if !sub.IsDue(now) {
		// Another worker already advanced it
		return nil
	}

	tx := sub.AdvanceBilling(now)

	if err := subRepo.AppendTransaction(ctx, sub.UUID, &tx); err != nil {
		return fmt.Errorf("failed to record transaction for %s: %w", sub.UUID, err)
	}
	if err := subRepo.Replace(ctx, sub); err != nil {
		return fmt.Errorf("failed to store advanced billing date for %s: %w", sub.UUID, err)
	}

	invalidateCaches(sub.UserID, sub.UUID)

	log.Infof("[JobQueue] Advanced billing for %s, next date %s", sub.UUID, sub.NextBillingDate.Format("2006-01-02"))
	return nil
}

// processExportJob writes the user's subscriptions as a JSON document to S3
func (q *Queue) processExportJob(ctx context.Context, job *Job) error {
	payload, err := ExportJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid export payload: %w", err)
	}

	cfg, err := s3export.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load S3 export config: %w", err)
	}
	if !cfg.IsEnabled() {
		log.Warnf("[JobQueue] S3 export disabled, dropping export job for user %d", payload.UserID)
		return nil
	}

	subRepo := repository.GetGlobalFactory().GetSubscriptionRepository()
	subs, err := subRepo.QueryByOwner(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions for user %d: %w", payload.UserID, err)
	}

	doc := map[string]interface{}{
		"user_id":       payload.UserID,
		"exported_at":   time.Now().UTC().Format(time.RFC3339),
		"subscriptions": subs,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	client, err := s3export.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	objectKey := cfg.GetObjectKey(payload.UserID, time.Now())
	if _, err := client.UploadJSON(ctx, objectKey, data); err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}

	// Only the newest export is kept per user; drop the previous object.
	if previous, err := cache.Get(lastExportKey(payload.UserID)); err == nil && previous != "" && previous != objectKey {
		if err := client.DeleteObject(ctx, previous); err != nil {
			log.Warnf("[JobQueue] Failed to delete previous export %s for user %d: %v", previous, payload.UserID, err)
		}
	}
	if err := cache.Set(lastExportKey(payload.UserID), objectKey, 0); err != nil {
		log.Errorf("[JobQueue] Failed to remember export key for user %d: %v", payload.UserID, err)
	}

	log.Infof("[JobQueue] Exported %d subscriptions for user %d to %s", len(subs), payload.UserID, objectKey)
	return nil
}
