package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recruit-agent-go/internal/agent"
	"recruit-agent-go/internal/api/handler"
	"recruit-agent-go/internal/api/router"
	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/guardrails"
	"recruit-agent-go/internal/outbox"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/tracing"

	appCoreLogger "recruit-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry 追踪
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		glog.Fatalf("初始化追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭追踪导出器失败: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// outbox 消息中继：把记忆持久化事件从数据库搬运到消息队列
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relayLogger := log.New(appCoreLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	} else {
		glog.Warn("MySQL或RabbitMQ未配置，outbox消息中继未启动")
	}

	// 聊天模型：未配置API密钥时回退到Mock模型，便于本地联调
	var llmChatModel model.ToolCallingChatModel
	if cfg.Aliyun.APIKey != "" {
		llmChatModel, err = agent.NewAliyunQwenChatModel(&cfg.Aliyun)
		if err != nil {
			glog.Fatalf("初始化通义千问模型失败: %v", err)
		}
		glog.Info("通义千问聊天模型初始化成功")
	} else {
		glog.Warn("未配置模型API密钥，回退到MockChatClient")
		llmChatModel = agent.NewMockChatClient(`{"route":"converse","reason":"mock","reply":"Model API key is not configured."}`, nil)
	}

	agentApp, err := agent.NewApp(cfg, storageManager, llmChatModel)
	if err != nil {
		glog.Fatalf("装配智能体应用失败: %v", err)
	}
	defer agentApp.Close()
	glog.Info("智能体应用装配成功")

	// 输入护栏引擎
	var guardEngine *guardrails.Engine
	if cfg.Guardrails.Enabled {
		guardEngine, err = guardrails.NewEngine(cfg.Guardrails.RulesPath, cfg.Guardrails.MaxInputLength)
		if err != nil {
			glog.Fatalf("初始化护栏引擎失败: %v", err)
		}
		glog.Info("输入护栏引擎初始化成功")
	} else {
		glog.Warn("输入护栏已禁用")
	}

	chatHandler := handler.NewChatHandler(cfg, guardEngine, agentApp, storageManager)

	serverOpts := []hertzconfig.Option{
		server.WithHostPorts(cfg.Server.Address()),
		server.WithHandleMethodNotAllowed(true),
	}
	var tracerCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		tracer, tCfg := hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracer)
		tracerCfg = tCfg
	}

	h := server.New(serverOpts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}

	router.RegisterRoutes(h, cfg, chatHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address())
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}
