package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/db"
)

// AccountRepository provides data access for credential records.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new repository bound to the given DB
// connection.
func NewAccountRepository(database *gorm.DB) *AccountRepository {
	return &AccountRepository{db: database}
}

// Create inserts an account. The unique index on email rejects
// duplicates.
func (r *AccountRepository) Create(ctx context.Context, account *db.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByEmail fetches an account by email. Returns
// gorm.ErrRecordNotFound when absent.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*db.Account, error) {
	var account db.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// EmailExists reports whether an account already uses the email.
func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// TouchLastLogin records a successful login time. Best effort.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now().UTC()).Error
}
