package storage

import (
	"context"
	"fmt"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键不存在
var ErrNotFound = redis.Nil

// Redis 提供键值存储功能
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// FormatKey 按统一命名规范格式化Redis键
func (r *Redis) FormatKey(keyConstant string, parts ...string) string {
	args := make([]interface{}, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return fmt.Sprintf(keyConstant, args...)
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// PushMemoryRecord 向用户长期记忆追加一条记录，并裁剪到保留上限
func (r *Redis) PushMemoryRecord(ctx context.Context, appName, userID string, record string) error {
	key := r.FormatKey(constants.KeyLongTermMemory, appName, userID)

	pipe := r.Client.TxPipeline()
	pipe.RPush(ctx, key, record)
	pipe.LTrim(ctx, key, int64(-constants.LongTermMemoryMaxRecords), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("追加长期记忆记录失败 (user %s): %w", userID, err)
	}
	return nil
}

// GetMemoryRecords 读取用户的全部长期记忆记录
func (r *Redis) GetMemoryRecords(ctx context.Context, appName, userID string) ([]string, error) {
	key := r.FormatKey(constants.KeyLongTermMemory, appName, userID)

	records, err := r.Client.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("读取长期记忆失败 (user %s): %w", userID, err)
	}
	return records, nil
}
