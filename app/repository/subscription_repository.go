package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subfoxapp/SubFox/app/models"
)

// ErrNotFound is returned by write operations against a missing subscription.
// Read paths report a missing record as (nil, nil) instead, because "no such
// record" is an answer there, not a failure.
var ErrNotFound = errors.New("subscription not found")

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Insert stores a new subscription and assigns its public id.
func (r *subscriptionRepository) Insert(ctx context.Context, sub *models.Subscription) (string, error) {
	sub.UUID = uuid.New().String()
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return "", err
	}
	return sub.UUID, nil
}

// QueryByOwner returns every subscription owned by ownerID, newest first.
func (r *subscriptionRepository) QueryByOwner(ctx context.Context, ownerID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Transactions").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// GetByID retrieves a subscription by its public id. A missing record yields
// (nil, nil).
func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Transactions").
		Where("uuid = ?", id).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Replace overwrites every mutable field of the stored record. The id, the
// owner and the transaction history are never written here.
func (r *subscriptionRepository) Replace(ctx context.Context, sub *models.Subscription) error {
	var existing models.Subscription
	err := r.db.WithContext(ctx).Where("uuid = ?", sub.UUID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	existing.Name = sub.Name
	existing.LogoURL = sub.LogoURL
	existing.Price = sub.Price
	existing.Currency = sub.Currency
	existing.BillingCycle = sub.BillingCycle
	existing.RenewalDate = sub.RenewalDate
	existing.NextBillingDate = sub.NextBillingDate

	return r.db.WithContext(ctx).Save(&existing).Error
}

// DeleteByID removes a subscription and, via the FK constraint, its
// transaction history.
func (r *subscriptionRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("uuid = ?", id).Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTransaction adds one charge record to a subscription's history.
func (r *subscriptionRepository) AppendTransaction(ctx context.Context, id string, tx *models.Transaction) error {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	tx.SubscriptionID = sub.ID
	return r.db.WithContext(ctx).Create(tx).Error
}

// Count returns the total number of tracked subscriptions.
func (r *subscriptionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Count(&count).Error
	return count, err
}

// SumMonthlySpend totals the price of all subscriptions normalized to a
// monthly amount. The normalization lives on the model, so rows are summed
// in Go rather than in SQL.
func (r *subscriptionRepository) SumMonthlySpend(ctx context.Context) (float64, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return 0, err
	}
	var total float64
	for i := range subs {
		total += subs[i].MonthlyPrice()
	}
	return total, nil
}

// DueBy returns subscriptions whose next charge happens on or before the
// given time. Used by the renewal reminder and billing advancement jobs.
func (r *subscriptionRepository) DueBy(ctx context.Context, by time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("(next_billing_date IS NOT NULL AND next_billing_date <= ?) OR (next_billing_date IS NULL AND renewal_date <= ?)", by, by).
		Find(&subs).Error
	return subs, err
}
