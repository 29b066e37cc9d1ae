package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	BillingCycleDaily     = "daily"
	BillingCycleWeekly    = "weekly"
	BillingCycleMonthly   = "monthly"
	BillingCycleQuarterly = "quarterly"
	BillingCycleYearly    = "yearly"
)

// Subscription represents a recurring payment tracked by a user.
// The UUID is the public identifier; it is assigned on insert and never changes.
type Subscription struct {
	ID              uint           `gorm:"primaryKey" json:"-"`
	UUID            string         `gorm:"type:char(36);uniqueIndex" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	Name            string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	LogoURL         string         `gorm:"type:varchar(255);default:null" json:"logo_url,omitempty" validate:"omitempty,url,max=255"`
	Price           float64        `gorm:"type:decimal(12,2);not null" json:"price" validate:"gte=0"`
	Currency        string         `gorm:"type:char(3);not null" json:"currency" validate:"required,len=3,alpha"`
	BillingCycle    string         `gorm:"type:varchar(20);not null" json:"billing_cycle" validate:"oneof=daily weekly monthly quarterly yearly"`
	RenewalDate     time.Time      `gorm:"type:date;not null" json:"renewal_date"`
	NextBillingDate *time.Time     `gorm:"type:date;default:null" json:"next_billing_date,omitempty"`
	Transactions    []Transaction  `gorm:"constraint:OnDelete:CASCADE" json:"transaction_history,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Subscription) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// CycleDuration returns the length of one billing period. Months and years
// are added calendar-wise by AdvanceBilling; this is only used for rough
// interval math (reminder scheduling).
func CycleDuration(cycle string) time.Duration {
	switch cycle {
	case BillingCycleDaily:
		return 24 * time.Hour
	case BillingCycleWeekly:
		return 7 * 24 * time.Hour
	case BillingCycleMonthly:
		return 30 * 24 * time.Hour
	case BillingCycleQuarterly:
		return 91 * 24 * time.Hour
	case BillingCycleYearly:
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// MonthlyPrice normalizes the subscription price to a monthly amount.
func (s *Subscription) MonthlyPrice() float64 {
	switch s.BillingCycle {
	case BillingCycleDaily:
		return s.Price * 30
	case BillingCycleWeekly:
		return s.Price * 52 / 12
	case BillingCycleMonthly:
		return s.Price
	case BillingCycleQuarterly:
		return s.Price / 3
	case BillingCycleYearly:
		return s.Price / 12
	}
	return s.Price
}

// nextDate moves a date one billing cycle forward, calendar-wise.
func nextDate(from time.Time, cycle string) time.Time {
	switch cycle {
	case BillingCycleDaily:
		return from.AddDate(0, 0, 1)
	case BillingCycleWeekly:
		return from.AddDate(0, 0, 7)
	case BillingCycleMonthly:
		return from.AddDate(0, 1, 0)
	case BillingCycleQuarterly:
		return from.AddDate(0, 3, 0)
	case BillingCycleYearly:
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// EffectiveBillingDate returns the next date the subscription bills:
// NextBillingDate when set, the renewal date otherwise.
func (s *Subscription) EffectiveBillingDate() time.Time {
	if s.NextBillingDate != nil && !s.NextBillingDate.IsZero() {
		return *s.NextBillingDate
	}
	return s.RenewalDate
}

// IsDue reports whether the subscription bills on or before now.
func (s *Subscription) IsDue(now time.Time) bool {
	return !s.EffectiveBillingDate().After(now)
}

// AdvanceBilling records the charge that just happened and moves the next
// billing date one cycle forward. It mutates the struct only; persisting is
// the caller's job.
func (s *Subscription) AdvanceBilling(now time.Time) Transaction {
	billedAt := s.EffectiveBillingDate()
	tx := Transaction{
		SubscriptionID: s.ID,
		Amount:         s.Price,
		Date:           billedAt,
	}
	next := nextDate(billedAt, s.BillingCycle)
	// Catch up if the service was down across several periods.
	for !next.After(now) {
		next = nextDate(next, s.BillingCycle)
	}
	s.NextBillingDate = &next
	s.Transactions = append(s.Transactions, tx)
	return tx
}
