package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ChatSession 会话持久化记录
// (app_name, user_id, session_id) 唯一；并发创建按后写者生效（upsert）
type ChatSession struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	AppName   string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_app_user_session,priority:1"`
	UserID    string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_app_user_session,priority:2"`
	SessionID string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_app_user_session,priority:3"`
	State     datatypes.JSON `gorm:"type:json"` // 输出键 -> 最新值
	CreatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

// TableName specifies the table name for the ChatSession model.
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// EvaluationRecord 一次候选人评估的落库审计记录，最终决策产生时写入
type EvaluationRecord struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement"`
	SessionID       string         `gorm:"type:varchar(64);not null;index"`
	UserID          string         `gorm:"type:varchar(128);not null"`
	CandidateName   string         `gorm:"type:varchar(255)"`
	MatchReport     datatypes.JSON `gorm:"type:json"`
	IntegrityReport datatypes.JSON `gorm:"type:json"`
	BiasReport      datatypes.JSON `gorm:"type:json"`
	Outcome         string         `gorm:"type:varchar(20);not null;index"`
	Rationale       string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

// TableName specifies the table name for the EvaluationRecord model.
func (EvaluationRecord) TableName() string {
	return "evaluation_records"
}

// OutboxMessage represents a message to be published asynchronously.
type OutboxMessage struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement"`
	AggregateID      string     `gorm:"type:varchar(36);not null;index"`
	EventType        string     `gorm:"type:varchar(255);not null"`
	Payload          string     `gorm:"type:json;not null"` // Storing as string to handle JSON
	TargetExchange   string     `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string     `gorm:"type:varchar(255);not null"`
	Status           string     `gorm:"type:varchar(20);default:'PENDING';not null;index:idx_outbox_status_created_at"`
	RetryCount       int        `gorm:"default:0"`
	CreatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_status_created_at,sort:asc"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6);null"`
	ErrorMessage     string     `gorm:"type:text"`
}

// TableName specifies the table name for the OutboxMessage model.
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// ValueToJSON 将任意可序列化值转换为datatypes.JSON
func ValueToJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
