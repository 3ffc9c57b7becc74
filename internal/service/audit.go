package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/model"
	"greenpick/backend/internal/repository"
)

// auditor 状态迁移审计写入器
// 在主事务提交后调用，异步落库：审计失败只记日志，绝不回滚业务操作
type auditor struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func newAuditor(repo *repository.Repository, logger *zap.Logger) *auditor {
	return &auditor{repo: repo, logger: logger}
}

// record 异步写入一条状态迁移审计
// 注意不复用请求的 ctx：请求返回后审计写入仍应完成
func (a *auditor) record(eventType, resourceType, resourceID string, before, after int16, actorID, actorRole string) {
	log := &model.AuditLog{
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeStatus: before,
		AfterStatus:  after,
		ActorRole:    actorRole,
	}
	if actorID != "" {
		log.ActorID = &actorID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.repo.AuditLog.Create(ctx, log); err != nil {
			a.logger.Warn("审计日志写入失败",
				zap.String("event_type", eventType),
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
		}
	}()
}

// AuditService 审计轨迹查询接口（运营排查状态迁移用）
type AuditService interface {
	// List 按资源倒序分页查询审计记录
	List(ctx context.Context, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, int64, error)
}

type auditService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) List(ctx context.Context, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, int64, error) {
	logs, total, err := s.repo.AuditLog.ListByResource(ctx, req.ResourceType, req.ResourceID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询审计记录失败",
			zap.String("resource_type", req.ResourceType),
			zap.String("resource_id", req.ResourceID),
			zap.Error(err),
		)
		return nil, 0, err
	}

	list := make([]dto.AuditLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		list = append(list, dto.AuditLogResponse{
			ID:           l.AuditID,
			EventType:    l.EventType,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			BeforeStatus: l.BeforeStatus,
			AfterStatus:  l.AfterStatus,
			ActorID:      l.ActorID,
			ActorRole:    l.ActorRole,
			CreatedAt:    l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return list, total, nil
}
