package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"

	"github.com/cloudwego/eino/components/model"
)

// App 聚合招聘助手的全部运行时组件。
type App struct {
	Runner   *Runner
	Sessions SessionService
	Memory   MemoryService

	consumerStop chan struct{}
}

// NewApp 根据配置与存储组件装配应用。
// 存储组件缺失时逐级降级：会话退到内存实现，记忆退到内存实现，
// 记忆事件退到后台协程直写。
func NewApp(cfg *config.Config, store *storage.Storage, chatModel model.ToolCallingChatModel) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if chatModel == nil {
		return nil, fmt.Errorf("聊天模型不能为空")
	}

	// 会话服务
	var sessions SessionService
	if store != nil && store.MySQL != nil {
		dbSessions, err := NewDatabaseSessionService(store.MySQL)
		if err != nil {
			return nil, fmt.Errorf("创建数据库会话服务失败: %w", err)
		}
		sessions = dbSessions
		logger.Info().Msg("会话服务使用MySQL持久化")
	} else {
		sessions = NewInMemorySessionService()
		logger.Warn().Msg("MySQL未配置，会话服务降级为内存实现")
	}

	// 长期记忆服务
	var memory MemoryService
	if store != nil && store.Redis != nil {
		redisMemory, err := NewRedisMemoryService(store.Redis)
		if err != nil {
			return nil, fmt.Errorf("创建Redis记忆服务失败: %w", err)
		}
		memory = redisMemory
		logger.Info().Msg("长期记忆服务使用Redis持久化")
	} else {
		memory = NewInMemoryMemoryService()
		logger.Warn().Msg("Redis未配置，长期记忆降级为内存实现")
	}

	// 聊天记忆
	var chatMemory ChatMemory
	if store != nil && store.Redis != nil {
		rcm, err := NewRedisChatMemory(store.Redis.Client, constants.ChatMemoryTTL)
		if err != nil {
			return nil, fmt.Errorf("创建Redis聊天记忆失败: %w", err)
		}
		chatMemory = rcm
	} else {
		chatMemory = NewInMemoryChatMemory()
	}

	opts := []RunnerOption{}
	if store != nil && store.MySQL != nil {
		opts = append(opts, WithMySQL(store.MySQL))
	}
	if store != nil && store.MinIO != nil {
		opts = append(opts, WithMinIO(store.MinIO))
	}
	if store != nil && store.MySQL != nil && store.RabbitMQ != nil {
		opts = append(opts, WithRabbitMQConfig(&cfg.RabbitMQ))
	}

	runner, err := NewRunner(chatModel, sessions, memory, chatMemory, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建运行器失败: %w", err)
	}

	app := &App{
		Runner:   runner,
		Sessions: sessions,
		Memory:   memory,
	}

	// 启动记忆事件消费者（outbox投递路径的末端）
	if store != nil && store.RabbitMQ != nil {
		if err := app.startMemoryConsumer(&cfg.RabbitMQ, store.RabbitMQ); err != nil {
			logger.Warn().Err(err).Msg("启动记忆事件消费者失败，outbox事件将积压")
		}
	}

	return app, nil
}

// startMemoryConsumer 声明交换机/队列并消费记忆持久化事件
func (a *App) startMemoryConsumer(cfg *config.RabbitMQConfig, mq *storage.RabbitMQ) error {
	if err := mq.EnsureExchange(cfg.MemoryEventsExchange, "direct", true); err != nil {
		return fmt.Errorf("声明记忆事件交换机失败: %w", err)
	}
	if err := mq.EnsureQueue(cfg.MemorySaveQueue, true); err != nil {
		return fmt.Errorf("声明记忆保存队列失败: %w", err)
	}
	if err := mq.BindQueue(cfg.MemorySaveQueue, cfg.MemoryEventsExchange, cfg.MemorySaveRoutingKey); err != nil {
		return fmt.Errorf("绑定记忆保存队列失败: %w", err)
	}

	stop, err := mq.StartConsumer(cfg.MemorySaveQueue, cfg.PrefetchCount, a.handleMemorySaveEvent)
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}
	a.consumerStop = stop

	logger.Info().Str("queue", cfg.MemorySaveQueue).Msg("记忆事件消费者已启动")
	return nil
}

// handleMemorySaveEvent 处理一条记忆持久化事件。
// 返回false时消息会被重新入队。
func (a *App) handleMemorySaveEvent(body []byte) bool {
	var event MemorySaveEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// 毒消息不重试，直接丢弃
		logger.Error().Err(err).Msg("记忆持久化事件反序列化失败，消息被丢弃")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Memory.AddSessionToMemory(ctx, event.AppName, event.UserID, &event.Record); err != nil {
		logger.Warn().Err(err).Str("session_id", event.Record.SessionID).Msg("消费记忆事件失败，消息重新入队")
		return false
	}
	return true
}

// Close 停止后台消费者
func (a *App) Close() {
	if a.consumerStop != nil {
		close(a.consumerStop)
	}
}
