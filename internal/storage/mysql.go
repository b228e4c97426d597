package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("recruit-agent-go/storage/mysql")

// GormTracingPlugin GORM的OpenTelemetry追踪插件
type GormTracingPlugin struct {
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{dbName: dbName}
}

// Name 实现 gorm.Plugin 接口
func (p *GormTracingPlugin) Name() string {
	return "GormTracingPlugin"
}

// Initialize 实现 gorm.Plugin 接口，注册前后回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	for _, op := range []string{"create", "query", "update", "delete", "row", "raw"} {
		processor := db.Callback().Create()
		switch op {
		case "query":
			processor = db.Callback().Query()
		case "update":
			processor = db.Callback().Update()
		case "delete":
			processor = db.Callback().Delete()
		case "row":
			processor = db.Callback().Row()
		case "raw":
			processor = db.Callback().Raw()
		}
		if err := processor.Before("gorm:"+op).Register("otel:before_"+op, p.before(op)); err != nil {
			return err
		}
		if err := processor.After("gorm:"+op).Register("otel:after_"+op, p.after()); err != nil {
			return err
		}
	}
	return nil
}

type gormSpanKey struct{}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := mysqlTracer.Start(db.Statement.Context, "mysql."+operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "mysql"),
				attribute.String("db.name", p.dbName),
			),
		)
		db.Statement.Context = context.WithValue(ctx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(
			attribute.String("db.table", db.Statement.Table),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)
		if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	case 4:
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // 禁用自动外键创建
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 开启预编译语句缓存
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	// 注册OpenTelemetry追踪插件
	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.ChatSession{},
		&models.EvaluationRecord{},
		&models.OutboxMessage{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// UpsertChatSession 写入或更新会话快照。
// 并发创建同一会话时按后写者生效。
func (m *MySQL) UpsertChatSession(ctx context.Context, session *models.ChatSession) error {
	session.UpdatedAt = time.Now()
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_name"}, {Name: "user_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(session).Error
}

// GetChatSession 读取会话快照，不存在时返回 gorm.ErrRecordNotFound
func (m *MySQL) GetChatSession(ctx context.Context, appName, userID, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := m.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", appName, userID, sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateEvaluationRecord 写入一条评估审计记录
func (m *MySQL) CreateEvaluationRecord(ctx context.Context, record *models.EvaluationRecord) error {
	return m.db.WithContext(ctx).Create(record).Error
}

// CreateOutboxMessage 在业务事务外写入一条待发布消息
func (m *MySQL) CreateOutboxMessage(ctx context.Context, msg *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Create(msg).Error
}
