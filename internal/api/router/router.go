package router

import (
	"context"
	"crypto/subtle"
	"time"

	"recruit-agent-go/internal/api/handler"
	"recruit-agent-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/cors"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由与中间件
func RegisterRoutes(h *server.Hertz, cfg *config.Config, chatHandler *handler.ChatHandler) {
	h.Use(corsMiddleware(cfg))

	h.GET("/", chatHandler.HandleRoot)
	h.GET("/health", chatHandler.HandleHealth)

	// 配置了API密钥时，聊天端点走密钥认证
	if cfg.Server.APIKey != "" {
		protected := h.Group("/", keyAuthMiddleware(cfg.Server.APIKey))
		protected.POST("/chat", chatHandler.HandleChat)
	} else {
		h.POST("/chat", chatHandler.HandleChat)
	}
}

// corsMiddleware 按配置的允许来源构建CORS中间件
func corsMiddleware(cfg *config.Config) app.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := false
	for _, origin := range cfg.Server.CORSOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false // 通配来源不允许携带凭证
	} else {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}

	return cors.New(corsCfg)
}

// keyAuthMiddleware 基于请求头 X-API-Key 的密钥认证
func keyAuthMiddleware(apiKey string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "无效的API密钥"})
			c.Abort()
		}),
	)
}
