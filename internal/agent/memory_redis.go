package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/tracing"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis 作为持久化存储。
type RedisChatMemory struct {
	redisClient *redis.Client
	ttl         time.Duration // 可选：为聊天记录设置过期时间，0表示不过期
}

// NewRedisChatMemory 创建一个新的 RedisChatMemory 实例。
func NewRedisChatMemory(redisClient *redis.Client, ttl time.Duration) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		ttl:         ttl,
	}, nil
}

// buildKey 为给定的 sessionID 构建 Redis 键。
func (rcm *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyChatHistory, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(sessionID string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionID)
	ctx := context.Background()

	serializedMessages, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil // Key 不存在，返回空历史
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from redis key %s: %w", tracing.SafeRedisKey(key), err)
	}

	messages := make([]*schema.Message, 0, len(serializedMessages))
	for _, sm := range serializedMessages {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message for session %s: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("cannot add nil message to chat history for session %s", sessionID)
	}
	return rcm.AddMessages(sessionID, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessages(sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := rcm.buildKey(sessionID)
	ctx := context.Background()

	// 使用 Pipeline 保证消息追加与TTL刷新的原子性
	pipe := rcm.redisClient.TxPipeline()
	for _, message := range messages {
		if message == nil {
			return fmt.Errorf("cannot add nil message in a batch to chat history for session %s", sessionID)
		}
		serializedMessage, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message for session %s: %w", sessionID, err)
		}
		pipe.RPush(ctx, key, serializedMessage)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add messages to redis key %s: %w", tracing.SafeRedisKey(key), err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(sessionID string) error {
	key := rcm.buildKey(sessionID)
	ctx := context.Background()

	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history from redis key %s: %w", tracing.SafeRedisKey(key), err)
	}
	return nil
}
