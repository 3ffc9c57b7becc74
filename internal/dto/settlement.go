package dto

// ── 结算模块 DTO ──

// CreateSettlementRequest 创建结算请求
type CreateSettlementRequest struct {
	AttendanceID string `json:"attendance_id" binding:"required,uuid"`
}

// SettlementListRequest 薪资单列表查询参数
type SettlementListRequest struct {
	BaseID    string `form:"base_id"    binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from"  binding:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to"    binding:"omitempty,datetime=2006-01-02"`
	Status    *int16 `form:"status"     binding:"omitempty,min=0,max=2"`
	PaginationRequest
}

// MySettlementListRequest 工人侧薪资单查询参数
type MySettlementListRequest struct {
	Status *int16 `form:"status" binding:"omitempty,min=0,max=2"`
	PaginationRequest
}

// SalaryResponse 薪资单响应
type SalaryResponse struct {
	ID                string       `json:"id"`
	AttendanceID      string       `json:"attendance_id"`
	Worker            *WorkerBrief `json:"worker,omitempty"`
	Job               *JobBrief    `json:"job,omitempty"`
	Base              *BaseBrief   `json:"base,omitempty"`
	WorkDate          string       `json:"work_date"`
	WageModel         string       `json:"wage_model"`
	UnitPriceSnapshot string       `json:"unit_price_snapshot"`
	WorkVolume        string       `json:"work_volume"`
	TotalAmount       string       `json:"total_amount"`
	Status            int16        `json:"status"`
	StatusLabel       string       `json:"status_label"`
	ConfirmedAt       *string      `json:"confirmed_at,omitempty"`
	PaidAt            *string      `json:"paid_at,omitempty"`
	CreatedAt         string       `json:"created_at"`
}

// WorkerSummaryResponse 工人侧汇总：出工天数与待发金额
type WorkerSummaryResponse struct {
	WorkerID      string `json:"worker_id"`
	WorkDays      int64  `json:"work_days"`      // 已签到的出工天数
	PendingCount  int64  `json:"pending_count"`  // 未发放薪资单数
	PendingAmount string `json:"pending_amount"` // 未发放金额合计
	PaidAmount    string `json:"paid_amount"`    // 已发放金额合计
}

// WorkerSumResponse 按工人聚合的金额合计
type WorkerSumResponse struct {
	WorkerID    string `json:"worker_id"`
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Count       int64  `json:"count"`
	TotalAmount string `json:"total_amount"`
}

// SettlementSumResponse 按状态聚合的金额合计
type SettlementSumResponse struct {
	Status      int16  `json:"status"`
	StatusLabel string `json:"status_label"`
	Count       int64  `json:"count"`
	TotalAmount string `json:"total_amount"`
}
