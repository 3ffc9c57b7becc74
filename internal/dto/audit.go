package dto

// ── 审计模块 DTO ──

// AuditLogListRequest 审计轨迹查询参数
type AuditLogListRequest struct {
	ResourceType string `form:"resource_type" binding:"required,oneof=signup salary_record"`
	ResourceID   string `form:"resource_id"   binding:"required,uuid"`
	PaginationRequest
}

// AuditLogResponse 审计记录响应
type AuditLogResponse struct {
	ID           string  `json:"id"`
	EventType    string  `json:"event_type"`
	ResourceType string  `json:"resource_type"`
	ResourceID   string  `json:"resource_id"`
	BeforeStatus int16   `json:"before_status"`
	AfterStatus  int16   `json:"after_status"`
	ActorID      *string `json:"actor_id,omitempty"`
	ActorRole    string  `json:"actor_role,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
