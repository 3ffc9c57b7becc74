package dto

// ── 签到模块 DTO ──

// CheckinTokenResponse 签到码响应
type CheckinTokenResponse struct {
	Token         string `json:"token"`
	ExpiresAt     string `json:"expires_at"`
	ValidDuration string `json:"valid_duration"` // 展示用时长标签，如 "24h0m0s"
}

// ScanRequest 扫码签到请求
type ScanRequest struct {
	Token  string `json:"token"   binding:"required"`
	BaseID string `json:"base_id" binding:"required,uuid"`
}

// ScanJobRequest 指定岗位的扫码签到请求（同日多报名需消歧时使用）
type ScanJobRequest struct {
	Token  string `json:"token"   binding:"required"`
	BaseID string `json:"base_id" binding:"required,uuid"`
	JobID  string `json:"job_id"  binding:"required,uuid"`
}

// ProxyCheckinRequest 基地代签请求（工人无设备，凭工号代签）
type ProxyCheckinRequest struct {
	WorkerUID string `json:"worker_uid" binding:"required"`
	BaseID    string `json:"base_id"    binding:"required,uuid"`
	JobID     string `json:"job_id"     binding:"required,uuid"`
}

// AttendanceResponse 考勤记录响应
type AttendanceResponse struct {
	ID            string       `json:"id"`
	SignUpID      string       `json:"signup_id"`
	Worker        *WorkerBrief `json:"worker,omitempty"`
	Job           *JobBrief    `json:"job,omitempty"`
	BaseID        string       `json:"base_id"`
	WorkDate      string       `json:"work_date"`
	CheckinAt     string       `json:"checkin_at"`
	OperatorProxy bool         `json:"operator_proxy"`
	WorkHours     string       `json:"work_hours"`
	PieceCount    int          `json:"piece_count"`
}
