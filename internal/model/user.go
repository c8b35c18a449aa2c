package model

import (
	"time"
)

// User 用户（name 长度 2~100，创建后不可改）
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(100);not null;index:idx_user_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
