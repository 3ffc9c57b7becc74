package model

import "time"

// Base 采摘基地表 — 对应 bases
// 由基地目录服务维护；本服务只读
type Base struct {
	BaseID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"base_id"`
	Name      string    `gorm:"type:varchar(100);not null"                     json:"name"`
	Address   string    `gorm:"type:varchar(255)"                              json:"address,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Base) TableName() string { return "bases" }
