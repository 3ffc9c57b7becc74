package model

import "time"

// 审计事件类型
const (
	AuditEventCheckin = "checkin"
	AuditEventCancel  = "cancel"
	AuditEventAbsent  = "absent"
	AuditEventSettle  = "settle"
	AuditEventReview  = "review"
	AuditEventConfirm = "confirm"
	AuditEventPaid    = "paid"
)

// 审计资源类型
const (
	AuditResourceSignUp = "signup"
	AuditResourceSalary = "salary_record"
)

// AuditLog 状态迁移审计表 — 对应 audit_logs（纯审计日志）
// 在主事务提交后异步写入；写入失败只记日志，不影响业务结果
type AuditLog struct {
	AuditID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_id"`
	EventType    string    `gorm:"type:varchar(30);not null"                      json:"event_type"`
	ResourceType string    `gorm:"type:varchar(30);not null"                      json:"resource_type"`
	ResourceID   string    `gorm:"type:uuid;not null"                             json:"resource_id"`
	BeforeStatus int16     `gorm:"type:smallint;not null"                         json:"before_status"`
	AfterStatus  int16     `gorm:"type:smallint;not null"                         json:"after_status"`
	ActorID      *string   `gorm:"type:uuid"                                      json:"actor_id,omitempty"`
	ActorRole    string    `gorm:"type:varchar(20)"                               json:"actor_role,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }
