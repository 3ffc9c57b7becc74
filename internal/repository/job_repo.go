package repository

import (
	"context"

	"gorm.io/gorm"

	"greenpick/backend/internal/model"
)

// JobRepository 岗位数据访问接口（基地目录服务属主，本服务只读）
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Preload("Base").
		Where("job_id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}
