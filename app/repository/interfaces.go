package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/subfoxapp/SubFox/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// SubscriptionRepository is the remote-store side of the query cache: inserts
// assign the public id, lists are an equality query on the owner column, and
// replaces never write the id.
type SubscriptionRepository interface {
	Insert(ctx context.Context, sub *models.Subscription) (string, error)
	QueryByOwner(ctx context.Context, ownerID uint) ([]models.Subscription, error)
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	Replace(ctx context.Context, sub *models.Subscription) error
	DeleteByID(ctx context.Context, id string) error
	AppendTransaction(ctx context.Context, id string, tx *models.Transaction) error
	Count() (int64, error)
	SumMonthlySpend(ctx context.Context) (float64, error)
	DueBy(ctx context.Context, by time.Time) ([]models.Subscription, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
