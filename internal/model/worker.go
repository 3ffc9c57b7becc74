package model

import "time"

// Worker 工人表 — 对应 workers
// 由注册服务写入；结算周期内本服务视为只读
type Worker struct {
	WorkerID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"worker_id"`
	UID       string    `gorm:"type:varchar(32);not null;uniqueIndex"          json:"uid"` // 人类可读工号
	Name      string    `gorm:"type:varchar(100);not null"                     json:"name"`
	Phone     string    `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Worker) TableName() string { return "workers" }
