package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"

	"gorm.io/gorm"
)

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("session not found")

// 审批关卡类型
const (
	ApprovalGateJobDescription = "job_description" // 职位描述发布前的人工确认
	ApprovalGateCandidate      = "candidate"       // 候选人终裁前的人工确认
)

// PendingApproval 记录一次被挂起的人工审批。
// 会话存在待审批时，下一条用户消息被解释为审批决定而不是普通输入。
type PendingApproval struct {
	Gate      string    `json:"gate"`       // 审批关卡
	Agent     string    `json:"agent"`      // 发起审批的智能体
	Proposal  string    `json:"proposal"`   // 呈现给审批人的提案文本
	CreatedAt time.Time `json:"created_at"`
}

// Session 表示一次多轮对话的状态快照。
// State 按输出键存放各智能体产出的结构化结果。
type Session struct {
	AppName         string                     `json:"app_name"`
	UserID          string                     `json:"user_id"`
	ID              string                     `json:"id"`
	State           map[string]json.RawMessage `json:"state"`
	PendingApproval *PendingApproval           `json:"pending_approval,omitempty"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// NewSession 创建一个空状态的会话
func NewSession(appName, userID, sessionID string) *Session {
	return &Session{
		AppName:   appName,
		UserID:    userID,
		ID:        sessionID,
		State:     make(map[string]json.RawMessage),
		UpdatedAt: time.Now(),
	}
}

// SetState 将任意值序列化后写入指定输出键
func (s *Session) SetState(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化会话状态 %s 失败: %w", key, err)
	}
	if s.State == nil {
		s.State = make(map[string]json.RawMessage)
	}
	s.State[key] = data
	return nil
}

// GetState 将指定输出键反序列化到 out。键不存在时返回 false。
func (s *Session) GetState(key string, out any) (bool, error) {
	raw, ok := s.State[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("反序列化会话状态 %s 失败: %w", key, err)
	}
	return true, nil
}

// HasState 判断指定输出键是否存在
func (s *Session) HasState(key string) bool {
	_, ok := s.State[key]
	return ok
}

// SessionService 定义了会话快照的存取接口
type SessionService interface {
	// GetSession 获取会话，不存在时返回 ErrSessionNotFound
	GetSession(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// CreateSession 创建一个新的空会话
	CreateSession(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// SaveSession 保存会话快照（存在则覆盖，最后写入者胜出）
	SaveSession(ctx context.Context, session *Session) error
}

// InMemorySessionService 是 SessionService 的内存实现，用于测试与降级场景。
type InMemorySessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemorySessionService 创建内存会话服务
func NewInMemorySessionService() *InMemorySessionService {
	return &InMemorySessionService{sessions: make(map[string]*Session)}
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}

// GetSession 实现 SessionService 接口
func (s *InMemorySessionService) GetSession(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey(appName, userID, sessionID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

// CreateSession 实现 SessionService 接口
func (s *InMemorySessionService) CreateSession(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	sess := NewSession(appName, userID, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(appName, userID, sessionID)] = cloneSession(sess)
	return sess, nil
}

// SaveSession 实现 SessionService 接口
func (s *InMemorySessionService) SaveSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("会话不能为空")
	}
	session.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(session.AppName, session.UserID, session.ID)] = cloneSession(session)
	return nil
}

// cloneSession 深拷贝会话，避免调用方与存储共享底层map
func cloneSession(src *Session) *Session {
	dst := &Session{
		AppName:   src.AppName,
		UserID:    src.UserID,
		ID:        src.ID,
		State:     make(map[string]json.RawMessage, len(src.State)),
		UpdatedAt: src.UpdatedAt,
	}
	for k, v := range src.State {
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		dst.State[k] = cp
	}
	if src.PendingApproval != nil {
		pa := *src.PendingApproval
		dst.PendingApproval = &pa
	}
	return dst
}

// sessionSnapshot 是写入数据库 State 列的序列化形态
type sessionSnapshot struct {
	State           map[string]json.RawMessage `json:"state"`
	PendingApproval *PendingApproval           `json:"pending_approval,omitempty"`
}

// DatabaseSessionService 是 SessionService 的MySQL实现，会话快照整体存为JSON列。
type DatabaseSessionService struct {
	mysql *storage.MySQL
}

// NewDatabaseSessionService 创建数据库会话服务
func NewDatabaseSessionService(mysql *storage.MySQL) (*DatabaseSessionService, error) {
	if mysql == nil {
		return nil, fmt.Errorf("MySQL存储不能为空")
	}
	return &DatabaseSessionService{mysql: mysql}, nil
}

// GetSession 实现 SessionService 接口
func (s *DatabaseSessionService) GetSession(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	record, err := s.mysql.GetChatSession(ctx, appName, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话快照失败: %w", err)
	}

	var snapshot sessionSnapshot
	if len(record.State) > 0 {
		if err := json.Unmarshal(record.State, &snapshot); err != nil {
			return nil, fmt.Errorf("反序列化会话快照失败: %w", err)
		}
	}
	if snapshot.State == nil {
		snapshot.State = make(map[string]json.RawMessage)
	}

	return &Session{
		AppName:         record.AppName,
		UserID:          record.UserID,
		ID:              record.SessionID,
		State:           snapshot.State,
		PendingApproval: snapshot.PendingApproval,
		UpdatedAt:       record.UpdatedAt,
	}, nil
}

// CreateSession 实现 SessionService 接口
func (s *DatabaseSessionService) CreateSession(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	sess := NewSession(appName, userID, sessionID)
	if err := s.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession 实现 SessionService 接口。
// 底层使用 ON DUPLICATE KEY UPDATE，并发保存时最后写入者胜出。
func (s *DatabaseSessionService) SaveSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("会话不能为空")
	}
	session.UpdatedAt = time.Now()

	snapshot := sessionSnapshot{
		State:           session.State,
		PendingApproval: session.PendingApproval,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化会话快照失败: %w", err)
	}

	record := &models.ChatSession{
		AppName:   session.AppName,
		UserID:    session.UserID,
		SessionID: session.ID,
		State:     data,
		UpdatedAt: session.UpdatedAt,
	}
	if err := s.mysql.UpsertChatSession(ctx, record); err != nil {
		return fmt.Errorf("保存会话快照失败: %w", err)
	}
	return nil
}

var _ SessionService = (*InMemorySessionService)(nil)
var _ SessionService = (*DatabaseSessionService)(nil)
