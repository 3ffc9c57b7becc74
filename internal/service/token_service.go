package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/repository"
	pkgjwt "greenpick/backend/pkg/jwt"
)

// ── 签到码模块业务错误 ──

var (
	ErrWorkerNotFound = errors.New("工人不存在")
)

// TokenService 签到码签发接口
// 重复签发不吊销旧码：校验只看签名与有效期，"一次性"由考勤台账保证
type TokenService interface {
	// Issue 为已认证的工人签发签到码
	Issue(ctx context.Context, workerID string) (*dto.CheckinTokenResponse, error)
}

type tokenService struct {
	repo   *repository.Repository
	jwtMgr *pkgjwt.Manager
	logger *zap.Logger
}

// NewTokenService 创建 TokenService 实例
func NewTokenService(repo *repository.Repository, jwtMgr *pkgjwt.Manager, logger *zap.Logger) TokenService {
	return &tokenService{repo: repo, jwtMgr: jwtMgr, logger: logger}
}

func (s *tokenService) Issue(ctx context.Context, workerID string) (*dto.CheckinTokenResponse, error) {
	worker, err := s.repo.Worker.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("查询工人失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}

	token, expiresAt, err := s.jwtMgr.GenerateCheckinToken(worker.WorkerID)
	if err != nil {
		s.logger.Error("签发签到码失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("签到码已签发",
		zap.String("worker_id", worker.WorkerID),
		zap.String("uid", worker.UID),
		zap.Time("expires_at", expiresAt),
	)

	return &dto.CheckinTokenResponse{
		Token:         token,
		ExpiresAt:     expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		ValidDuration: s.jwtMgr.CheckinTokenTTL().String(),
	}, nil
}
