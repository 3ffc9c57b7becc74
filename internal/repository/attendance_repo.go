package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"greenpick/backend/internal/model"
	pkgerrors "greenpick/backend/pkg/errors"
)

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	// GetBySignUp 按报名查考勤；signup_id 唯一索引保证至多一条
	GetBySignUp(ctx context.Context, signUpID string) (*model.AttendanceRecord, error)
	// UpdateVolume 更新工作量；考勤已生成薪资单时拒绝写入，
	// 返回 pkg/errors.ErrOptimisticLock
	UpdateVolume(ctx context.Context, record *model.AttendanceRecord) error
	// ListByWorkerBaseDate 查询某工人某基地某工作日的全部考勤（重复扫码的幂等回查）
	ListByWorkerBaseDate(ctx context.Context, workerID, baseID string, workDate time.Time) ([]model.AttendanceRecord, error)
	ListByBaseAndDate(ctx context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.AttendanceRecord, int64, error)
	// ListUnsettled 结算补偿用：已签到但尚无薪资单的考勤
	ListUnsettled(ctx context.Context, limit int) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) GetBySignUp(ctx context.Context, signUpID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("signup_id = ?", signUpID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) UpdateVolume(ctx context.Context, record *model.AttendanceRecord) error {
	// 结算后工作量冻结。冻结判断放进 UPDATE 本身，
	// 避免 Service 层先查后写之间薪资单被并发生成
	result := r.db.WithContext(ctx).
		Model(record).
		Where("attendance_id = ?", record.AttendanceID).
		Where("NOT EXISTS (SELECT 1 FROM salary_records WHERE salary_records.attendance_id = attendance_records.attendance_id)").
		Updates(map[string]interface{}{
			"work_hours":  record.WorkHours,
			"piece_count": record.PieceCount,
			"updated_by":  record.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *attendanceRepo) ListByWorkerBaseDate(ctx context.Context, workerID, baseID string, workDate time.Time) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND base_id = ? AND work_date = ?",
			workerID, baseID, workDate.Format("2006-01-02")).
		Order("checkin_at DESC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByBaseAndDate(ctx context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.AttendanceRecord, int64, error) {
	var records []model.AttendanceRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("base_id = ? AND work_date = ?", baseID, workDate.Format("2006-01-02"))

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("checkin_at ASC").
		Find(&records).Error
	return records, total, err
}

func (r *attendanceRepo) ListUnsettled(ctx context.Context, limit int) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN salary_records ON salary_records.attendance_id = attendance_records.attendance_id").
		Where("salary_records.salary_id IS NULL").
		Order("attendance_records.work_date ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
