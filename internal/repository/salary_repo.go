package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"greenpick/backend/internal/model"
	pkgerrors "greenpick/backend/pkg/errors"
)

// SalaryFilter 薪资单筛选条件
type SalaryFilter struct {
	BaseID   string
	DateFrom *time.Time
	DateTo   *time.Time
	Status   *model.SalaryStatus
}

// StatusSum 按状态聚合的金额合计
type StatusSum struct {
	Status model.SalaryStatus
	Count  int64
	Total  decimal.Decimal
}

// WorkerSum 按工人聚合的金额合计（运营看板用）
type WorkerSum struct {
	WorkerID string
	UID      string
	Name     string
	Count    int64
	Total    decimal.Decimal
}

// WorkerSummary 工人侧汇总数据
type WorkerSummary struct {
	WorkDays      int64           // 已签到的出工天数
	PendingCount  int64           // 未发放薪资单数
	PendingAmount decimal.Decimal // 未发放金额合计
	PaidAmount    decimal.Decimal // 已发放金额合计
}

// SalaryRepository 薪资单数据访问接口
type SalaryRepository interface {
	Create(ctx context.Context, record *model.SalaryRecord) error
	GetByID(ctx context.Context, id string) (*model.SalaryRecord, error)
	// GetByAttendance 按考勤查薪资单；attendance_id 唯一索引保证至多一条
	GetByAttendance(ctx context.Context, attendanceID string) (*model.SalaryRecord, error)
	// UpdateStatus 乐观锁状态迁移；版本不匹配返回 pkg/errors.ErrOptimisticLock
	UpdateStatus(ctx context.Context, record *model.SalaryRecord, to model.SalaryStatus, confirmedAt, paidAt *time.Time) error
	List(ctx context.Context, filter SalaryFilter, offset, limit int) ([]model.SalaryRecord, int64, error)
	ListByWorker(ctx context.Context, workerID string, status *model.SalaryStatus, offset, limit int) ([]model.SalaryRecord, int64, error)
	SumByStatus(ctx context.Context, filter SalaryFilter) ([]StatusSum, error)
	SumByWorker(ctx context.Context, filter SalaryFilter) ([]WorkerSum, error)
	Summary(ctx context.Context, workerID string) (*WorkerSummary, error)
	// ListForExport 不分页拉取导出行（预加载工人/岗位/基地）
	ListForExport(ctx context.Context, filter SalaryFilter) ([]model.SalaryRecord, error)
}

type salaryRepo struct {
	db *gorm.DB
}

func NewSalaryRepo(db *gorm.DB) SalaryRepository {
	return &salaryRepo{db: db}
}

func (r *salaryRepo) Create(ctx context.Context, record *model.SalaryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *salaryRepo) GetByID(ctx context.Context, id string) (*model.SalaryRecord, error) {
	var record model.SalaryRecord
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Preload("Job").
		Preload("Base").
		Where("salary_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *salaryRepo) GetByAttendance(ctx context.Context, attendanceID string) (*model.SalaryRecord, error) {
	var record model.SalaryRecord
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", attendanceID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *salaryRepo) UpdateStatus(ctx context.Context, record *model.SalaryRecord, to model.SalaryStatus, confirmedAt, paidAt *time.Time) error {
	oldVersion := record.Version
	updates := map[string]interface{}{
		"status":     to,
		"updated_by": record.UpdatedBy,
		"version":    oldVersion + 1,
	}
	if confirmedAt != nil {
		updates["confirmed_at"] = confirmedAt
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}

	result := r.db.WithContext(ctx).
		Model(record).
		Where("salary_id = ? AND version = ?", record.SalaryID, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Status = to
	record.Version = oldVersion + 1
	if confirmedAt != nil {
		record.ConfirmedAt = confirmedAt
	}
	if paidAt != nil {
		record.PaidAt = paidAt
	}
	return nil
}

func applySalaryFilter(db *gorm.DB, filter SalaryFilter) *gorm.DB {
	if filter.BaseID != "" {
		db = db.Where("base_id = ?", filter.BaseID)
	}
	if filter.DateFrom != nil {
		db = db.Where("work_date >= ?", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		db = db.Where("work_date <= ?", filter.DateTo.Format("2006-01-02"))
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}

func (r *salaryRepo) List(ctx context.Context, filter SalaryFilter, offset, limit int) ([]model.SalaryRecord, int64, error) {
	var records []model.SalaryRecord
	var total int64

	db := applySalaryFilter(r.db.WithContext(ctx).Model(&model.SalaryRecord{}), filter)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Worker").Preload("Job").Preload("Base").
		Offset(offset).Limit(limit).
		Order("work_date DESC, created_at DESC").
		Find(&records).Error
	return records, total, err
}

func (r *salaryRepo) ListByWorker(ctx context.Context, workerID string, status *model.SalaryStatus, offset, limit int) ([]model.SalaryRecord, int64, error) {
	var records []model.SalaryRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SalaryRecord{}).
		Where("worker_id = ?", workerID)
	if status != nil {
		db = db.Where("status = ?", *status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Job").Preload("Base").
		Offset(offset).Limit(limit).
		Order("work_date DESC, created_at DESC").
		Find(&records).Error
	return records, total, err
}

func (r *salaryRepo) SumByStatus(ctx context.Context, filter SalaryFilter) ([]StatusSum, error) {
	var sums []StatusSum
	err := applySalaryFilter(r.db.WithContext(ctx).Model(&model.SalaryRecord{}), filter).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("status").
		Scan(&sums).Error
	return sums, err
}

func (r *salaryRepo) SumByWorker(ctx context.Context, filter SalaryFilter) ([]WorkerSum, error) {
	var sums []WorkerSum
	err := applySalaryFilter(r.db.WithContext(ctx).Model(&model.SalaryRecord{}), filter).
		Select("salary_records.worker_id, workers.uid, workers.name, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Joins("JOIN workers ON workers.worker_id = salary_records.worker_id").
		Group("salary_records.worker_id, workers.uid, workers.name").
		Order("total DESC").
		Scan(&sums).Error
	return sums, err
}

func (r *salaryRepo) Summary(ctx context.Context, workerID string) (*WorkerSummary, error) {
	summary := &WorkerSummary{
		PendingAmount: decimal.Zero,
		PaidAmount:    decimal.Zero,
	}

	// 出工天数按已签到的考勤记录数统计
	err := r.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("worker_id = ?", workerID).
		Count(&summary.WorkDays).Error
	if err != nil {
		return nil, err
	}

	var rows []StatusSum
	err = r.db.WithContext(ctx).Model(&model.SalaryRecord{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Where("worker_id = ?", workerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.Status == model.SalaryStatusPaid {
			summary.PaidAmount = summary.PaidAmount.Add(row.Total)
		} else {
			summary.PendingCount += row.Count
			summary.PendingAmount = summary.PendingAmount.Add(row.Total)
		}
	}
	return summary, nil
}

func (r *salaryRepo) ListForExport(ctx context.Context, filter SalaryFilter) ([]model.SalaryRecord, error) {
	var records []model.SalaryRecord
	err := applySalaryFilter(r.db.WithContext(ctx).Model(&model.SalaryRecord{}), filter).
		Preload("Worker").Preload("Job").Preload("Base").
		Order("work_date ASC, created_at ASC").
		Find(&records).Error
	return records, err
}
