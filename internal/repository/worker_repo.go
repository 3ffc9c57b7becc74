package repository

import (
	"context"

	"gorm.io/gorm"

	"greenpick/backend/internal/model"
)

// WorkerRepository 工人数据访问接口（注册服务属主，本服务只读）
type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (*model.Worker, error)
	GetByUID(ctx context.Context, uid string) (*model.Worker, error)
}

type workerRepo struct {
	db *gorm.DB
}

func NewWorkerRepo(db *gorm.DB) WorkerRepository {
	return &workerRepo{db: db}
}

func (r *workerRepo) GetByID(ctx context.Context, id string) (*model.Worker, error) {
	var worker model.Worker
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", id).
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepo) GetByUID(ctx context.Context, uid string) (*model.Worker, error) {
	var worker model.Worker
	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}
