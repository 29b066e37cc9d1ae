package models

import "time"

// Transaction is a single past charge of a subscription. Rows are append-only
// in practice; nothing in the app edits or removes them.
type Transaction struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	SubscriptionID uint      `gorm:"not null;index" json:"-"`
	Amount         float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Date           time.Time `gorm:"type:date;not null" json:"date"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`
}
