package model

import "time"

// Fan 粉丝关系（B 的粉丝是 A）冗余自 Follow，由 FanReplicator 异步维护。
// 只服务粉丝列表读路径；精确计数仍以 follows 表为准。
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_fan_user;index:idx_fan_pair,unique;not null"`
	FanID     string `gorm:"type:varchar(36);not null;index:idx_fan_pair,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
