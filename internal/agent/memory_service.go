package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"recruit-agent-go/internal/storage"
)

// MemoryRecord 是写入长期记忆的一条会话摘要
type MemoryRecord struct {
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryService 定义了跨会话长期记忆的接口。
// 记忆写入发生在请求路径之外（消息消费者或后台协程）。
type MemoryService interface {
	// AddSessionToMemory 将一条会话摘要追加到用户的长期记忆
	AddSessionToMemory(ctx context.Context, appName, userID string, record *MemoryRecord) error

	// LoadRelevantMemory 按简单关键词重合度检索与查询相关的记忆，最多返回 limit 条
	LoadRelevantMemory(ctx context.Context, appName, userID, query string, limit int) ([]*MemoryRecord, error)
}

// scoreRelevance 统计查询词元在记忆内容中的命中数
func scoreRelevance(content, query string) int {
	contentLower := strings.ToLower(content)
	score := 0
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) < 2 {
			continue
		}
		if strings.Contains(contentLower, token) {
			score++
		}
	}
	return score
}

// rankRecords 按相关度降序、时间降序排序并截断
func rankRecords(records []*MemoryRecord, query string, limit int) []*MemoryRecord {
	type scored struct {
		record *MemoryRecord
		score  int
	}
	ranked := make([]scored, 0, len(records))
	for _, r := range records {
		ranked = append(ranked, scored{record: r, score: scoreRelevance(r.Content, query)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].record.CreatedAt.After(ranked[j].record.CreatedAt)
	})

	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]*MemoryRecord, 0, limit)
	for _, s := range ranked[:limit] {
		// 全无命中的记忆不参与召回
		if s.score == 0 && strings.TrimSpace(query) != "" {
			continue
		}
		out = append(out, s.record)
	}
	return out
}

// InMemoryMemoryService 是 MemoryService 的内存实现，用于测试与降级场景。
type InMemoryMemoryService struct {
	mu      sync.RWMutex
	records map[string][]*MemoryRecord // key: appName/userID
}

// NewInMemoryMemoryService 创建内存长期记忆服务
func NewInMemoryMemoryService() *InMemoryMemoryService {
	return &InMemoryMemoryService{records: make(map[string][]*MemoryRecord)}
}

func memoryOwnerKey(appName, userID string) string {
	return appName + "/" + userID
}

// AddSessionToMemory 实现 MemoryService 接口
func (s *InMemoryMemoryService) AddSessionToMemory(ctx context.Context, appName, userID string, record *MemoryRecord) error {
	if record == nil || strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("记忆内容不能为空")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryOwnerKey(appName, userID)
	s.records[key] = append(s.records[key], record)
	return nil
}

// LoadRelevantMemory 实现 MemoryService 接口
func (s *InMemoryMemoryService) LoadRelevantMemory(ctx context.Context, appName, userID, query string, limit int) ([]*MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return rankRecords(s.records[memoryOwnerKey(appName, userID)], query, limit), nil
}

// RedisMemoryService 是 MemoryService 的Redis实现，每个用户一个有界列表。
type RedisMemoryService struct {
	redis *storage.Redis
}

// NewRedisMemoryService 创建Redis长期记忆服务
func NewRedisMemoryService(redis *storage.Redis) (*RedisMemoryService, error) {
	if redis == nil {
		return nil, fmt.Errorf("Redis存储不能为空")
	}
	return &RedisMemoryService{redis: redis}, nil
}

// AddSessionToMemory 实现 MemoryService 接口
func (s *RedisMemoryService) AddSessionToMemory(ctx context.Context, appName, userID string, record *MemoryRecord) error {
	if record == nil || strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("记忆内容不能为空")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化记忆失败: %w", err)
	}
	return s.redis.PushMemoryRecord(ctx, appName, userID, string(data))
}

// LoadRelevantMemory 实现 MemoryService 接口
func (s *RedisMemoryService) LoadRelevantMemory(ctx context.Context, appName, userID, query string, limit int) ([]*MemoryRecord, error) {
	raws, err := s.redis.GetMemoryRecords(ctx, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("读取长期记忆失败: %w", err)
	}

	records := make([]*MemoryRecord, 0, len(raws))
	for _, raw := range raws {
		var r MemoryRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			// 跳过损坏的记录，不让单条坏数据拖垮整个召回
			continue
		}
		records = append(records, &r)
	}
	return rankRecords(records, query, limit), nil
}

var _ MemoryService = (*InMemoryMemoryService)(nil)
var _ MemoryService = (*RedisMemoryService)(nil)
