package repository

import (
	"context"

	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, record *billingdomain.EventRecord) error {
	return db.WithContext(ctx).Create(record).Error
}
