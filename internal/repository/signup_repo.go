package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"greenpick/backend/internal/model"
	pkgerrors "greenpick/backend/pkg/errors"
)

// StatusCount 某状态的报名数量
type StatusCount struct {
	Status model.SignUpStatus
	Count  int64
}

// SignUpRepository 报名数据访问接口
type SignUpRepository interface {
	GetByID(ctx context.Context, id string) (*model.SignUp, error)
	// ListOpenByWorkerBaseDate 查询某工人某基地某工作日仍处于"已报名"的全部报名（预加载岗位）
	ListOpenByWorkerBaseDate(ctx context.Context, workerID, baseID string, workDate time.Time) ([]model.SignUp, error)
	// GetByWorkerJobDate 按 (工人, 岗位, 工作日) 查报名，不限状态；唯一索引保证至多一条
	GetByWorkerJobDate(ctx context.Context, workerID, jobID string, workDate time.Time) (*model.SignUp, error)
	// UpdateStatus 乐观锁状态迁移；版本不匹配返回 pkg/errors.ErrOptimisticLock
	UpdateStatus(ctx context.Context, signup *model.SignUp, to model.SignUpStatus) error
	// ListSignedUpBefore 缺勤扫描用：工作日早于 cutoff 且仍为"已报名"的报名
	ListSignedUpBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.SignUp, error)
	ListByBaseAndDate(ctx context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.SignUp, int64, error)
	CountByBaseAndDate(ctx context.Context, baseID string, workDate time.Time) ([]StatusCount, error)
}

type signUpRepo struct {
	db *gorm.DB
}

func NewSignUpRepo(db *gorm.DB) SignUpRepository {
	return &signUpRepo{db: db}
}

func (r *signUpRepo) GetByID(ctx context.Context, id string) (*model.SignUp, error) {
	var signup model.SignUp
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Preload("Job").
		Where("signup_id = ?", id).
		First(&signup).Error
	if err != nil {
		return nil, err
	}
	return &signup, nil
}

func (r *signUpRepo) ListOpenByWorkerBaseDate(ctx context.Context, workerID, baseID string, workDate time.Time) ([]model.SignUp, error) {
	var signups []model.SignUp
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("worker_id = ? AND base_id = ? AND work_date = ? AND status = ?",
			workerID, baseID, workDate.Format("2006-01-02"), model.SignUpStatusSignedUp).
		Order("created_at ASC").
		Find(&signups).Error
	return signups, err
}

func (r *signUpRepo) GetByWorkerJobDate(ctx context.Context, workerID, jobID string, workDate time.Time) (*model.SignUp, error) {
	var signup model.SignUp
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("worker_id = ? AND job_id = ? AND work_date = ?",
			workerID, jobID, workDate.Format("2006-01-02")).
		First(&signup).Error
	if err != nil {
		return nil, err
	}
	return &signup, nil
}

func (r *signUpRepo) UpdateStatus(ctx context.Context, signup *model.SignUp, to model.SignUpStatus) error {
	oldVersion := signup.Version
	result := r.db.WithContext(ctx).
		Model(signup).
		Where("signup_id = ? AND version = ?", signup.SignUpID, oldVersion).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": signup.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	signup.Status = to
	signup.Version = oldVersion + 1
	return nil
}

func (r *signUpRepo) ListSignedUpBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.SignUp, error) {
	var signups []model.SignUp
	err := r.db.WithContext(ctx).
		Where("work_date < ? AND status = ?", cutoff.Format("2006-01-02"), model.SignUpStatusSignedUp).
		Order("work_date ASC").
		Limit(limit).
		Find(&signups).Error
	return signups, err
}

func (r *signUpRepo) ListByBaseAndDate(ctx context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.SignUp, int64, error) {
	var signups []model.SignUp
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SignUp{}).
		Where("base_id = ? AND work_date = ?", baseID, workDate.Format("2006-01-02"))

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Worker").Preload("Job").
		Offset(offset).Limit(limit).
		Order("created_at ASC").
		Find(&signups).Error
	return signups, total, err
}

func (r *signUpRepo) CountByBaseAndDate(ctx context.Context, baseID string, workDate time.Time) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&model.SignUp{}).
		Select("status, COUNT(*) AS count").
		Where("base_id = ? AND work_date = ?", baseID, workDate.Format("2006-01-02")).
		Group("status").
		Scan(&counts).Error
	return counts, err
}
