package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greenpick/backend/config"
)

// Client Redis 客户端封装
// 当前用于考勤汇总缓存与接口限流；后续可扩展分布式锁等场景
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 考勤汇总缓存 ──

const rollupPrefix = "attendance:rollup:"

// GetRollup 读取某基地某工作日的状态汇总缓存（JSON 文本）
// 缓存未命中返回 ("", nil)
func (c *Client) GetRollup(ctx context.Context, baseID, workDate string) (string, error) {
	val, err := c.rdb.Get(ctx, rollupPrefix+baseID+":"+workDate).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return val, err
}

// SetRollup 写入状态汇总缓存
func (c *Client) SetRollup(ctx context.Context, baseID, workDate, payload string, ttl time.Duration) error {
	return c.rdb.Set(ctx, rollupPrefix+baseID+":"+workDate, payload, ttl).Err()
}

// ── 接口限流 ──

// CheckRateLimit 固定窗口限流：窗口内第 limit+1 次请求返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
