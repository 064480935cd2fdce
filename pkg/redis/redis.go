package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-conduct/backend/config"
)

// Client Redis 客户端封装
// 当前用于 Token 黑名单、速率限制与权限缓存失效信号
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

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 权限缓存失效信号 ──
//
// 多实例部署时进程内权限缓存无法直接互相失效，
// 以 Redis 中的失效时间戳做跨实例广播：
// 实例在读取本地缓存前比对该时间戳，晚于本地缓存时间则视为过期

const permBustPrefix = "perm:bust:"

// BustPermission 记录某角色权限的失效时刻
func (c *Client) BustPermission(ctx context.Context, roleToken string, ttl time.Duration) error {
	return c.rdb.Set(ctx, permBustPrefix+roleToken, time.Now().UnixNano(), ttl).Err()
}

// PermissionBustedAt 查询某角色权限最近一次失效时刻
// 无记录时返回零值时间
func (c *Client) PermissionBustedAt(ctx context.Context, roleToken string) (time.Time, error) {
	ns, err := c.rdb.Get(ctx, permBustPrefix+roleToken).Int64()
	if err != nil {
		if err == goredis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Unix(0, ns), nil
}

// ── 速率限制 ──

// CheckRateLimit 固定窗口计数限流
// 返回 true 表示允许本次请求
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
