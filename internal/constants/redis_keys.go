package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ChatModulePrefix 会话模块
	ChatModulePrefix = "chat"
	// MemoryModulePrefix 长期记忆模块
	MemoryModulePrefix = "memory"

	// EntityHistory 聊天历史实体
	EntityHistory = "history"
	// EntityRecord 记忆记录实体
	EntityRecord = "record"

	// KeyChatHistory 会话聊天历史 (LIST)
	// 格式: app:chat:history:{sessionID}
	KeyChatHistory = AppPrefix + ":" + ChatModulePrefix + ":" + EntityHistory + ":%s"

	// KeyLongTermMemory 用户长期记忆 (LIST)
	// 格式: app:memory:record:{appName}:{userID}
	KeyLongTermMemory = AppPrefix + ":" + MemoryModulePrefix + ":" + EntityRecord + ":%s:%s"
)
