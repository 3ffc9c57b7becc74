package dto

// ── 考勤台账 DTO ──

// RecordVolumeRequest 录入工作量请求
// hourly 岗位填 work_hours，piece 岗位填 piece_count
type RecordVolumeRequest struct {
	WorkHours  *string `json:"work_hours"  binding:"omitempty"`
	PieceCount *int    `json:"piece_count" binding:"omitempty,min=0"`
}

// AttendanceListRequest 考勤列表查询参数
type AttendanceListRequest struct {
	BaseID   string `form:"base_id"   binding:"required,uuid"`
	WorkDate string `form:"work_date" binding:"required,datetime=2006-01-02"`
	PaginationRequest
}

// RollupRequest 状态汇总查询参数
type RollupRequest struct {
	BaseID   string `form:"base_id"   binding:"required,uuid"`
	WorkDate string `form:"work_date" binding:"required,datetime=2006-01-02"`
}

// RollupResponse 某基地某工作日的报名状态汇总
type RollupResponse struct {
	BaseID    string `json:"base_id"`
	WorkDate  string `json:"work_date"`
	SignedUp  int64  `json:"signed_up"`
	CheckedIn int64  `json:"checked_in"`
	Absent    int64  `json:"absent"`
	Cancelled int64  `json:"cancelled"`
}

// SignUpResponse 报名记录响应
type SignUpResponse struct {
	ID          string       `json:"id"`
	Worker      *WorkerBrief `json:"worker,omitempty"`
	Job         *JobBrief    `json:"job,omitempty"`
	BaseID      string       `json:"base_id"`
	WorkDate    string       `json:"work_date"`
	Status      int16        `json:"status"`
	StatusLabel string       `json:"status_label"`
}
