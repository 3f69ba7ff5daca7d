package repository

import (
	"context"
	"time"

	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresAuditRepo struct {
	db *gorm.DB
}

func NewPostgresAuditRepo(db *gorm.DB) (*PostgresAuditRepo, error) {
	if err := db.AutoMigrate(&model.AuditLog{}); err != nil {
		return nil, err
	}
	return &PostgresAuditRepo{db: db}, nil
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, filter service.AuditFilter) ([]*model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.PrimaryType != "" {
		q = q.Where("context ->> 'primary_type' = ?", filter.PrimaryType)
	}
	if filter.User != "" {
		q = q.Where("context ->> 'user' = ?", filter.User)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var records []*model.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Cleanup deletes records older than retention and returns how many went.
func (r *PostgresAuditRepo) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}
